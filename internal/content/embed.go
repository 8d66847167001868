package content

import (
	"fmt"
	htmlstd "html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	embedLinePattern = regexp.MustCompile(`^<?((?:https?://)?[^\s<>]+)>?$`)
	embedSrcPattern  = regexp.MustCompile(`^https://(?:www\.youtube-nocookie\.com/embed/|player\.vimeo\.com/video/)[A-Za-z0-9_-]+(?:\?[A-Za-z0-9_=&-]*)?$`)
	listItemPattern  = regexp.MustCompile(`^(?:[-*+]|\d+\.)\s+`)
	youTubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)
	timePartPattern  = regexp.MustCompile(`(?i)(\d+)(h|m|s)`)
)

type videoEmbed struct {
	Provider string
	Source   string
	Src      string
}

// newContentSanitizer 在 UGC 策略基础上只放行受信任播放器的 iframe。
func newContentSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class", "data-video-provider").OnElements("div")
	policy.AllowAttrs("src").Matching(embedSrcPattern).OnElements("iframe")
	policy.AllowAttrs("title", "allow", "allowfullscreen", "loading", "referrerpolicy").OnElements("iframe")
	return policy
}

// expandVideoEmbeds 把单独成段的视频链接替换为播放器。代码块、引用和列表中的链接保持原样。
func expandVideoEmbeds(markdown string) string {
	if !strings.Contains(markdown, "youtu") && !strings.Contains(markdown, "vimeo") {
		return markdown
	}

	lines := strings.Split(markdown, "\n")
	fence := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(trimmed, fence):
				fence = ""
			}
			continue
		}
		if fence != "" || trimmed == "" || strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			continue
		}
		if strings.HasPrefix(trimmed, ">") || listItemPattern.MatchString(trimmed) {
			continue
		}

		match := embedLinePattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		if embed, ok := parseVideoURL(match[1]); ok {
			lines[i] = embed.html()
		}
	}
	return strings.Join(lines, "\n")
}

func fenceMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "```"):
		return "```"
	case strings.HasPrefix(line, "~~~"):
		return "~~~"
	}
	return ""
}

func parseVideoURL(raw string) (videoEmbed, bool) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return videoEmbed{}, false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")
	switch {
	case host == "youtu.be":
		return youTubeEmbed(firstSegment(path), u, raw)
	case host == "youtube.com" || host == "m.youtube.com":
		if path == "watch" {
			return youTubeEmbed(u.Query().Get("v"), u, raw)
		}
		for _, prefix := range []string{"shorts/", "embed/", "live/"} {
			if strings.HasPrefix(path, prefix) {
				return youTubeEmbed(firstSegment(strings.TrimPrefix(path, prefix)), u, raw)
			}
		}
	case host == "vimeo.com":
		id := firstSegment(path)
		if id != "" && onlyDigits(id) {
			return videoEmbed{
				Provider: "vimeo",
				Source:   raw,
				Src:      "https://player.vimeo.com/video/" + id + "?dnt=1",
			}, true
		}
	}
	return videoEmbed{}, false
}

func youTubeEmbed(id string, u *url.URL, source string) (videoEmbed, bool) {
	if !youTubeIDPattern.MatchString(id) {
		return videoEmbed{}, false
	}
	values := url.Values{}
	values.Set("rel", "0")
	values.Set("playsinline", "1")
	start := u.Query().Get("start")
	if start == "" {
		start = u.Query().Get("t")
	}
	if seconds := parseStartTime(start); seconds > 0 {
		values.Set("start", strconv.Itoa(seconds))
	}
	return videoEmbed{
		Provider: "youtube",
		Source:   source,
		Src:      "https://www.youtube-nocookie.com/embed/" + id + "?" + values.Encode(),
	}, true
}

// parseStartTime 支持纯秒数和 1h2m3s 两种写法。
func parseStartTime(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if onlyDigits(value) {
		seconds, _ := strconv.Atoi(value)
		return seconds
	}

	total := 0
	for _, match := range timePartPattern.FindAllStringSubmatch(value, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total
}

func (e videoEmbed) html() string {
	return fmt.Sprintf(
		`<div class="video-embed" data-video-provider="%s">`+
			`<iframe src="%s" title="%s video player" loading="lazy" allow="encrypted-media; picture-in-picture" allowfullscreen referrerpolicy="strict-origin-when-cross-origin"></iframe>`+
			`</div>`,
		htmlstd.EscapeString(e.Provider),
		htmlstd.EscapeString(e.Src),
		htmlstd.EscapeString(e.Provider),
	)
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func onlyDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
