package storage

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Rolling cache of the newest messages per chat. Purely an acceleration for
// chat-list previews; mongo remains the source of truth for history.

const recentWindow = 50

type RecentMsg struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Kind      string `json:"kind"`
	Preview   string `json:"preview"`
	CreatedAt int64  `json:"created_at"`
}

func recentKey(chatID string) string { return "cb:recent:" + chatID }

// AppendRecent pushes a message summary onto the chat's rolling window.
func AppendRecent(chatID string, m RecentMsg) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, recentKey(chatID), b)
	pipe.LTrim(ctx, recentKey(chatID), 0, recentWindow-1)
	_, err = pipe.Exec(ctx)
	return err
}

// FetchRecent returns up to n cached summaries, newest first.
func FetchRecent(chatID string, n int) ([]RecentMsg, error) {
	if rdb == nil {
		return nil, errors.New("redis not initialized")
	}
	if n <= 0 || n > recentWindow {
		n = recentWindow
	}
	vals, err := rdb.LRange(ctx, recentKey(chatID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]RecentMsg, 0, len(vals))
	for _, v := range vals {
		var m RecentMsg
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			out = append(out, m)
		}
	}
	return out, nil
}
