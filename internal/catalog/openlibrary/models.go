package openlibrary

import "bytes"

type searchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []doc `json:"docs"`
}

type doc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	CoverID             int      `json:"cover_i"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	Subject             []string `json:"subject"`
}

type work struct {
	Key              string      `json:"key"`
	Title            string      `json:"title"`
	Description      textField   `json:"description"`
	Subjects         []string    `json:"subjects"`
	Covers           []int       `json:"covers"`
	Authors          []workActor `json:"authors"`
	FirstPublishDate string      `json:"first_publish_date"`
}

type workActor struct {
	Author struct {
		Key string `json:"key"`
	} `json:"author"`
}

type author struct {
	Name string `json:"name"`
}

// textField accepts both a plain string and the {"type": ..., "value": ...} form
type textField string

func (t *textField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var typed struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &typed); err != nil {
			return err
		}
		*t = textField(typed.Value)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = textField(s)
	return nil
}
