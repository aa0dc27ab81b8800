package recommend

import "bookshelf/internal/models"

// CuratedFallback is served when no catalog can be reached
func CuratedFallback() []models.RecommendedBook {
	curated := func(id, title, author, genre string, pages int, year string) models.RecommendedBook {
		return models.RecommendedBook{
			BookRef: models.BookRef{
				ID:            id,
				Title:         title,
				Authors:       []string{author},
				PageCount:     pages,
				PublishedDate: year,
				Categories:    []string{genre},
				Source:        "curated",
			},
			RelevanceScore: 0.5,
			Strategy:       StrategyCurated,
			Reason:         "Reader favourite",
		}
	}

	return []models.RecommendedBook{
		curated("curated-dune", "Dune", "Frank Herbert", "Science Fiction", 412, "1965"),
		curated("curated-pride", "Pride and Prejudice", "Jane Austen", "Fiction", 279, "1813"),
		curated("curated-hobbit", "The Hobbit", "J.R.R. Tolkien", "Fantasy", 310, "1937"),
		curated("curated-1984", "Nineteen Eighty-Four", "George Orwell", "Fiction", 328, "1949"),
		curated("curated-ackroyd", "The Murder of Roger Ackroyd", "Agatha Christie", "Mystery", 312, "1926"),
		curated("curated-lefthand", "The Left Hand of Darkness", "Ursula K. Le Guin", "Science Fiction", 304, "1969"),
		curated("curated-mockingbird", "To Kill a Mockingbird", "Harper Lee", "Fiction", 281, "1960"),
		curated("curated-rebecca", "Rebecca", "Daphne du Maurier", "Mystery", 380, "1938"),
	}
}
