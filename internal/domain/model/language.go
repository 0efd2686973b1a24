package model

type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
