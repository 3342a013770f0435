package models

// BookmarkRecord is the remote representation of a bookmarked page.
// Field names follow the remote wire format.
type BookmarkRecord struct {
	ID        string `json:"id"`
	Page      int    `json:"page"`
	PDFID     string `json:"pdfId"`
	UserID    string `json:"userId"`
	IsVisible bool   `json:"isVisible"`
	CreatedAt string `json:"createdAt"`
}
