package chat

import (
	"slices"
	"strings"

	"github.com/hitoshi/startupconnect/internal/repository"
)

// PairKey は2人のユーザーIDをソートして"_"で連結した会話キーを返す。
// 引数の順序によらず同じ値になる。
func PairKey(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return strings.Join(ids, "_")
}

// StorageKey は会話メッセージを保存するストアのキーを返す。
func StorageKey(a, b string) string {
	return repository.ChatKeyPrefix + PairKey(a, b)
}

// counterpartID はストアのキーから閲覧者の相手のIDを取り出す。
// 閲覧者が参加していない会話の場合はfalseを返す。
func counterpartID(key, viewerID string) (string, bool) {
	pair, ok := strings.CutPrefix(key, repository.ChatKeyPrefix)
	if !ok {
		return "", false
	}
	if other, ok := strings.CutPrefix(pair, viewerID+"_"); ok && other != "" && StorageKey(viewerID, other) == key {
		return other, true
	}
	if other, ok := strings.CutSuffix(pair, "_"+viewerID); ok && other != "" && StorageKey(viewerID, other) == key {
		return other, true
	}
	return "", false
}
