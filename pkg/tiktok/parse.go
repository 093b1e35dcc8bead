package tiktok

import (
	"encoding/json"
	"fmt"
)

type videoStats struct {
	PlayCount int64 `json:"playCount"`
	DiggCount int64 `json:"diggCount"`
}

type rehydrationData struct {
	DefaultScope struct {
		VideoDetail struct {
			ItemInfo struct {
				ItemStruct struct {
					Desc  string      `json:"desc"`
					Stats *videoStats `json:"stats"`
				} `json:"itemStruct"`
			} `json:"itemInfo"`
		} `json:"webapp.video-detail"`
	} `json:"__DEFAULT_SCOPE__"`
}

// parseStats locates the rehydration script block in the page body and
// walks the fixed field path down to the stats object. Each stage fails
// independently and every failure maps to ErrUnavailable.
func parseStats(videoID string, body []byte) (Stats, error) {
	m := dataScriptPattern.FindSubmatch(body)
	if m == nil {
		return Stats{}, fmt.Errorf("%w: data block not found", ErrUnavailable)
	}

	var data rehydrationData
	if err := json.Unmarshal(m[1], &data); err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	item := data.DefaultScope.VideoDetail.ItemInfo.ItemStruct
	if item.Stats == nil {
		return Stats{}, fmt.Errorf("%w: stats field missing", ErrUnavailable)
	}

	return Stats{
		VideoID:     videoID,
		Description: item.Desc,
		Views:       item.Stats.PlayCount,
		Likes:       item.Stats.DiggCount,
	}, nil
}
