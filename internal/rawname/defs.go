// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package rawname implements the pure-function raw release-name parser of
// spec.md section 4.E, grounded on original_source's
// crates/recorder/src/parsers/{defs,torrent_parser}.rs regex table.
package rawname

import "regexp"

const (
	langZhTW = "zh-TW"
	langZhCN = "zh-CN"
	langEn   = "en"
	langJa   = "ja"
)

// seasonRegex matches "S2" / "Season 2" style season markers.
var seasonRegex = regexp.MustCompile(`(?i)(S|Season\s+)(\d+)`)

// torrentParseRules mirrors TORRENT_PRASE_RULE_REGS. Go's RE2 engine has no
// lookaround, so the negative lookahead `(?!\d|p)` from the original
// fancy_regex pattern is dropped; the ordered fallback across rules (most
// specific first) compensates for the resulting looser first-rule match.
var torrentParseRules = []*regexp.Regexp{
	regexp.MustCompile(`(.*) - (\d{1,4}(?:\.\d{1,2})?)(?:v\d{1,2})?\s*(?:END)?(.*)`),
	regexp.MustCompile(`(.*)[\[ E](\d{1,4}(?:\.\d{1,2})?)(?:v\d{1,2})?\s*(?:END)?[\] ](.*)`),
	regexp.MustCompile(`(.*)\[第?(\d*\.?\d*)[话集話](?:END)?\](.*)`),
	regexp.MustCompile(`(.*)第?(\d*\.?\d*)[话話集](?:END)?(.*)`),
	regexp.MustCompile(`(.*)(?:S\d{2})?EP?(\d+)(.*)`),
}

var subtitleLang = []struct {
	lang     string
	matches  []string
}{
	{langZhTW, []string{"tc", "cht", "繁", "zh-tw"}},
	{langZhCN, []string{"sc", "chs", "简", "zh", "zh-cn"}},
	{langEn, []string{"en", "eng", "英"}},
	{langJa, []string{"jp", "jpn", "日"}},
}

var bracketsRegex = regexp.MustCompile(`[\[\]()【】（）]`)

var digitOnePlusRegex = regexp.MustCompile(`\d+`)

var zhNumMap = map[rune]int{
	'〇': 0, '一': 1, '二': 2, '三': 3, '四': 4, '五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	'十': 10, '廿': 20, '百': 100, '千': 1000, '零': 0,
	'壹': 1, '贰': 2, '叁': 3, '肆': 4, '伍': 5, '陆': 6, '柒': 7, '捌': 8, '玖': 9,
	'拾': 10, '念': 20, '佰': 100, '仟': 1000,
}

var zhNumRegex = regexp.MustCompile(`[〇一二三四五六七八九十廿百千零壹贰叁肆伍陆柒捌玖拾念佰仟]+`)
