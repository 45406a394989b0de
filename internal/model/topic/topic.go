package topic

// Category groups related topics in the browser.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Topic is a conversation subject a user can pick.
type Topic struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
}

// SeedCategories provides the default categories for a fresh server.
func SeedCategories() []Category {
	return []Category{
		{ID: "daily", Name: "Daily life", Description: "Everyday small talk"},
		{ID: "work", Name: "Work", Description: "Interviews, meetings and office chat"},
		{ID: "ideas", Name: "Ideas", Description: "Opinions and open questions"},
	}
}

// Seed provides the default topics for a fresh server.
func Seed() []Topic {
	return []Topic{
		{ID: "1", Name: "Weekend plans", Description: "Talk about what you did or will do on the weekend.", CategoryID: "daily"},
		{ID: "2", Name: "Favourite food", Description: "Describe a dish you love and why.", CategoryID: "daily"},
		{ID: "3", Name: "Job interview", Description: "Practice answering common interview questions.", CategoryID: "work"},
		{ID: "4", Name: "Remote work", Description: "Discuss the pros and cons of working from home.", CategoryID: "work"},
		{ID: "5", Name: "Technology and society", Description: "Share your view on how technology changes daily life.", CategoryID: "ideas"},
	}
}
