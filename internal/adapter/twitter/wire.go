package twitter

// Wire shapes of the v1.1 streaming payloads. Only the fields we render are decoded.

type wireTweet struct {
	IDStr               string            `json:"id_str"`
	Text                string            `json:"text"`
	FullText            string            `json:"full_text"`
	CreatedAt           string            `json:"created_at"`
	User                *wireUser         `json:"user"`
	InReplyToScreenName string            `json:"in_reply_to_screen_name"`
	RetweetedStatus     *wireTweet        `json:"retweeted_status"`
	QuotedStatus        *wireTweet        `json:"quoted_status"`
	Entities            wireEntities      `json:"entities"`
	ExtendedEntities    *wireExtEntities  `json:"extended_entities"`
	ExtendedTweet       *wireExtendedBody `json:"extended_tweet"`
	Source              string            `json:"source"`
	Place               *wirePlace        `json:"place"`
}

type wireUser struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

type wireEntities struct {
	Hashtags     []wireText    `json:"hashtags"`
	Symbols      []wireText    `json:"symbols"`
	URLs         []wireURL     `json:"urls"`
	UserMentions []wireMention `json:"user_mentions"`
}

type wireText struct {
	Text string `json:"text"`
}

type wireURL struct {
	ExpandedURL *string `json:"expanded_url"`
}

type wireMention struct {
	ScreenName string `json:"screen_name"`
}

type wireExtEntities struct {
	Media []wireMedia `json:"media"`
}

type wireMedia struct {
	Type string `json:"type"`
}

// wireExtendedBody carries the untruncated text of tweets over 140 characters.
type wireExtendedBody struct {
	FullText         string           `json:"full_text"`
	Entities         wireEntities     `json:"entities"`
	ExtendedEntities *wireExtEntities `json:"extended_entities"`
}

type wirePlace struct {
	FullName string `json:"full_name"`
}
