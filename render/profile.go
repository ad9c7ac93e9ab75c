package render

// Resource-block profiles are pure data: ordered lists of URL glob
// patterns suppressed during navigation. Blocking is mounted before the
// first network request of the navigation, so it shortens render latency
// without changing the DOM structure the extractors rely on.

// tracker and ad hosts blocked by every profile.
var trackerPatterns = []string{
	"*googlesyndication.com*",
	"*googleadservices.com*",
	"*google-analytics.com*",
	"*googletagmanager.com*",
	"*doubleclick.net*",
	"*facebook.net*",
	"*hotjar.com*",
	"*mixpanel.com*",
	"*segment.com*",
	"*criteo.com*",
	"*taboola.com*",
	"*outbrain.com*",
	"*scorecardresearch.com*",
}

// ProfileLight blocks fonts, stylesheets, media and known trackers while
// preserving images, for extraction paths that want image URLs.
var ProfileLight = append([]string{
	"*.css",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.otf",
	"*.mp4",
	"*.webm",
	"*.mp3",
	"*.ogg",
}, trackerPatterns...)

// ProfileAggressive additionally blocks images and scripts, for
// metadata-only extraction where only the initial HTML matters.
var ProfileAggressive = append([]string{
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.webp",
	"*.svg",
	"*.ico",
	"*.js",
}, ProfileLight...)

// ProfileByName maps a profile name to its pattern list. Unknown names
// fall back to the light profile.
func ProfileByName(name string) []string {
	switch name {
	case "aggressive":
		return ProfileAggressive
	default:
		return ProfileLight
	}
}
