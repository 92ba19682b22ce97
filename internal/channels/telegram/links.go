package telegram

import "github.com/wasilibs/go-re2"

// Share-link shapes accepted by the /upvideo flow. Short links are kept
// as-is; the resolver service follows redirects itself.
var shareLinkPatterns = []*re2.Regexp{
	// Douyin short and canonical links
	re2.MustCompile(`^https?://v\.douyin\.com/[\w-]+/?`),
	re2.MustCompile(`^https?://(?:www\.)?douyin\.com/video/\d+`),
	re2.MustCompile(`^https?://(?:www\.)?iesdouyin\.com/share/video/\d+`),
	// TikTok short and canonical links
	re2.MustCompile(`^https?://(?:vm|vt)\.tiktok\.com/[\w-]+/?`),
	re2.MustCompile(`^https?://(?:www\.)?tiktok\.com/@[\w.-]+/video/\d+`),
	// Facebook reels, watch and share links
	re2.MustCompile(`^https?://(?:www\.|m\.|web\.)?facebook\.com/(?:reel|watch|share)/`),
	re2.MustCompile(`^https?://(?:www\.)?facebook\.com/[\w.]+/videos/\d+`),
	re2.MustCompile(`^https?://fb\.watch/[\w-]+/?`),
}

// linkInText pulls the first URL-looking token out of a message, so users
// can paste a link surrounded by the share caption the platform adds.
var linkInText = re2.MustCompile(`https?://\S+`)

// IsShareLink reports whether url matches a supported platform link shape.
func IsShareLink(url string) bool {
	for _, p := range shareLinkPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// ExtractShareLink finds the first supported share link inside free text.
// It returns the empty string when no supported link is present.
func ExtractShareLink(text string) string {
	for _, candidate := range linkInText.FindAllString(text, -1) {
		if IsShareLink(candidate) {
			return candidate
		}
	}
	return ""
}
