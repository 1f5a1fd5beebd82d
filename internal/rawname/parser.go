// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package rawname

import (
	"strconv"
	"strings"

	"github.com/moistari/rls"

	"github.com/dumtruck/konobangu/internal/domain"
)

// GetFansub splits "[Fansub] Title" into (fansub, title). When the second
// bracketed segment is purely numeric (an episode number, not a fansub tag)
// it is treated as absent, per the original's disambiguation rule.
func GetFansub(groupAndTitle string) (fansub string, title string) {
	parts := bracketsRegex.Split(groupAndTitle, -1)
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}

	if len(cleaned) == 0 {
		return "", groupAndTitle
	}
	if len(cleaned) == 1 {
		return "", cleaned[0]
	}
	if strings.Trim(cleaned[1], "0123456789") == "" {
		return "", groupAndTitle
	}
	return cleaned[0], cleaned[1]
}

// GetSeasonAndTitle strips a season marker from the title and returns the
// parsed season number, defaulting to 1 when none is present.
func GetSeasonAndTitle(seasonAndTitle string) (title string, season int) {
	title = strings.TrimSpace(seasonRegex.ReplaceAllString(seasonAndTitle, ""))
	season = 1
	if m := seasonRegex.FindStringSubmatch(seasonAndTitle); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			season = n
		}
	}
	return title, season
}

// GetSubtitleLang maps a subtitle-group name substring to a normalized
// language tag, or "" if no table entry matches.
func GetSubtitleLang(subtitleName string) string {
	lower := strings.ToLower(subtitleName)
	for _, entry := range subtitleLang {
		for _, m := range entry.matches {
			if strings.Contains(lower, m) {
				return entry.lang
			}
		}
	}
	return ""
}

// ParseChineseNumber parses a Chinese numeral string (simple digits and
// compounds using 十/百/千, e.g. "二十三" → 23). 万 and 亿 are not
// recognized. Returns 0, false if s contains no recognized numeral
// characters.
func ParseChineseNumber(s string) (int, bool) {
	if !zhNumRegex.MatchString(s) {
		return 0, false
	}

	total := 0
	section := 0
	number := 0
	matched := false

	for _, r := range s {
		val, ok := zhNumMap[r]
		if !ok {
			continue
		}
		matched = true

		switch val {
		case 10, 20, 100, 1000:
			if number == 0 {
				number = 1
			}
			if val == 20 {
				// 廿/念 are themselves "two tens", not a multiplier applied
				// to a preceding digit.
				section += val
				number = 0
				continue
			}
			section += number * val
			number = 0
		default:
			number = number*10 + val
		}
	}
	total += section + number

	if !matched {
		return 0, false
	}
	return total, true
}

// ParseEpisodeMetaFromRawName implements spec.md section 4.E's
// parse_episode_meta_from_raw_name: season defaults to 1, episode_index to 0
// when unparseable.
//
// Resolution and source come from github.com/moistari/rls, the same
// release-parsing library the teacher uses for Western scene-release naming
// (season/episode/group/resolution/source tokens). Its Series/Episode/Group
// fields assume a trailing "-GROUP" scene convention and don't fit CJK
// fansub releases (leading "[Fansub]" bracket, 第N话/第N季 markers, Chinese
// numerals), so those three are still produced by the hand-rolled regex
// table below — grounded on original_source's own Rust regex table, which
// hand-rolls the same residual because no CJK-aware crate existed there
// either. Resolution and source are exactly the token classes rls does
// model correctly regardless of naming convention, so this parser defers to
// it for those two fields instead of re-deriving them from scratch.
func ParseEpisodeMetaFromRawName(title string) domain.EpisodeMeta {
	meta := domain.EpisodeMeta{Season: 1, EpisodeIndex: 0}

	release := rls.ParseString(title)
	meta.Resolution = release.Resolution
	meta.Source = release.Source
	// rls reports the source in its own normalized casing; keep the title's
	// spelling of the same tag.
	if release.Source != "" {
		if i := strings.Index(strings.ToLower(title), strings.ToLower(release.Source)); i >= 0 &&
			i+len(release.Source) <= len(title) && strings.EqualFold(title[i:i+len(release.Source)], release.Source) {
			meta.Source = title[i : i+len(release.Source)]
		}
	}

	for _, rule := range torrentParseRules {
		m := rule.FindStringSubmatch(title)
		if m == nil || len(m) < 3 {
			continue
		}

		groupAndTitle := m[1]
		episodeStr := m[2]

		fansub, bareTitle := GetFansub(groupAndTitle)
		seasonTitle, season := GetSeasonAndTitle(bareTitle)

		meta.Fansub = fansub
		meta.Season = season
		meta.NameZhNoSeason = seasonTitle

		if episodeIndex, err := strconv.Atoi(strings.TrimSpace(strings.Split(episodeStr, ".")[0])); err == nil {
			meta.EpisodeIndex = episodeIndex
		}

		if lang := GetSubtitleLang(title); lang != "" {
			meta.Subtitle = append(meta.Subtitle, lang)
		}

		break
	}

	return meta
}
