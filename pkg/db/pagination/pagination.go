package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// Pagination is the request-side contract for cursor paging.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// Cursor points past the last row of the previous page. Ordering is
// (created_at DESC, id DESC), so both fields travel in the token.
type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// TrimPage expects rows fetched with limit+1 and returns the visible page
// plus page info. The next token is built from the last visible row.
func TrimPage[T any](rows []*T, limit int, cursorOf func(*T) Cursor) ([]*T, *PageInfo, error) {
	if len(rows) == 0 {
		return rows, &PageInfo{}, nil
	}

	hasMore := false
	if limit > 0 && len(rows) > limit {
		hasMore = true
		rows = rows[:limit]
	}

	info := &PageInfo{HasMore: hasMore}
	if hasMore {
		token, err := EncodeCursor(cursorOf(rows[len(rows)-1]))
		if err != nil {
			return nil, nil, err
		}
		info.NextPageToken = token
	}

	return rows, info, nil
}
