package model

import "time"

// Message は会話に追加されたメッセージを表す。作成後は変更されない。
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Conversation はメッセージ一覧画面に表示する会話の要約。
type Conversation struct {
	Key         string
	Other       *Identity
	LastMessage *Message
}
