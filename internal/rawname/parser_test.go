// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package rawname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFansub(t *testing.T) {
	t.Parallel()

	fansub, title := GetFansub("[Lilith-Raws] Title Name")
	assert.Equal(t, "Lilith-Raws", fansub)
	assert.Equal(t, "Title Name", title)

	fansub, title = GetFansub("[Lilith-Raws][12] Title Name")
	assert.Equal(t, "", fansub)
	assert.Equal(t, "[Lilith-Raws][12] Title Name", title)

	fansub, title = GetFansub("Bare Title")
	assert.Equal(t, "", fansub)
	assert.Equal(t, "Bare Title", title)
}

func TestGetSeasonAndTitle(t *testing.T) {
	t.Parallel()

	title, season := GetSeasonAndTitle("My Show Season 2")
	assert.Equal(t, "My Show", title)
	assert.Equal(t, 2, season)

	title, season = GetSeasonAndTitle("My Show")
	assert.Equal(t, "My Show", title)
	assert.Equal(t, 1, season)
}

func TestGetSubtitleLang(t *testing.T) {
	t.Parallel()

	assert.Equal(t, langZhTW, GetSubtitleLang("CHT"))
	assert.Equal(t, langZhCN, GetSubtitleLang("simplified_chs"))
	assert.Equal(t, langEn, GetSubtitleLang("ENG"))
	assert.Equal(t, "", GetSubtitleLang("unknown"))
}

func TestParseChineseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"一", 1, true},
		{"十", 10, true},
		{"二十三", 23, true},
		{"一百", 100, true},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseChineseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestParseEpisodeMetaFromRawName(t *testing.T) {
	t.Parallel()

	meta := ParseEpisodeMetaFromRawName("[Lilith-Raws] My Show Season 2 - 12 [CHT][1080p]")
	assert.Equal(t, "Lilith-Raws", meta.Fansub)
	assert.Equal(t, 2, meta.Season)
	assert.Equal(t, 12, meta.EpisodeIndex)
	assert.Equal(t, "1080p", meta.Resolution)

	meta = ParseEpisodeMetaFromRawName("not a recognizable pattern at all")
	assert.Equal(t, 1, meta.Season)
	assert.Equal(t, 0, meta.EpisodeIndex)

	meta = ParseEpisodeMetaFromRawName("[Nekomoe kissaten&LoliHouse] Boku no Kokoro no Yabai Yatsu - 20 [WebRip 1080p HEVC-10bit AAC ASSx2].mkv")
	assert.Equal(t, "Nekomoe kissaten&LoliHouse", meta.Fansub)
	assert.Equal(t, 20, meta.EpisodeIndex)
	assert.Equal(t, 1, meta.Season)
	assert.Equal(t, "1080p", meta.Resolution)
	assert.Equal(t, "WebRip", meta.Source)
}
