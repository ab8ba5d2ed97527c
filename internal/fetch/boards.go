package fetch

import (
	"net/url"
	"strings"
)

// Board is a job board whose pages get dedicated extraction selectors.
type Board string

const (
	BoardLinkedIn   Board = "linkedin"
	BoardGreenhouse Board = "greenhouse"
	BoardLever      Board = "lever"
	BoardJobKorea   Board = "jobkorea"
	BoardWanted     Board = "wanted"
	BoardNone       Board = ""
)

// boardHosts maps host suffixes to boards.
var boardHosts = map[string]Board{
	"linkedin.com":   BoardLinkedIn,
	"greenhouse.io":  BoardGreenhouse,
	"lever.co":       BoardLever,
	"jobkorea.co.kr": BoardJobKorea,
	"wanted.co.kr":   BoardWanted,
}

// DetectBoard identifies the job board serving urlStr.
func DetectBoard(urlStr string) Board {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return BoardNone
	}
	host := strings.ToLower(parsed.Hostname())
	for suffix, board := range boardHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return board
		}
	}
	return BoardNone
}

// SelectorsFor returns content selectors for a page, preferring board-specific ones.
func SelectorsFor(urlStr string) []string {
	switch DetectBoard(urlStr) {
	case BoardLinkedIn:
		return append([]string{".show-more-less-html__markup", ".description__text"}, JobPostingSelectors()...)
	case BoardGreenhouse:
		return append([]string{".job__description", "#content"}, JobPostingSelectors()...)
	case BoardLever:
		return append([]string{".posting-page", ".section-wrapper.page-full-width"}, JobPostingSelectors()...)
	case BoardJobKorea:
		return append([]string{".tbDetail", ".artReadJobSum"}, JobPostingSelectors()...)
	case BoardWanted:
		return append([]string{"[class*='JobDescription']"}, JobPostingSelectors()...)
	default:
		return DefaultTextSelectors()
	}
}
