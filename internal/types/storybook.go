package types

import "time"

// Scene is one page of a storybook. ImageURL is nil until an illustration
// has been generated for the scene.
type Scene struct {
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url"`
}

// Styles holds the typography choices applied to every page of the book.
type Styles struct {
	FontName string `json:"font_name"`
	FontSize int    `json:"font_size"`
}

// StorybookSession is the full server-side state of an in-progress storybook
// edit. It lives in Redis under a single key and every mutation overwrites
// exactly one field path. The scene count is fixed at creation.
type StorybookSession struct {
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	CharacterDesc string    `json:"character_desc"`
	StyleDesc     string    `json:"style_desc"`
	MasterPrompt  string    `json:"master_prompt"`
	Styles        Styles    `json:"styles"`
	Scenes        []Scene   `json:"scenes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *StorybookSession) SceneInRange(index int) bool {
	return index >= 0 && index < len(s.Scenes)
}
