package api

import (
	"net/url"
	"strconv"
)

// Page is the pagination envelope the backend wraps list responses in.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

func (p Page[T]) HasMore() bool {
	return p.Next != ""
}

// NextPage extracts the page number from the next link, 0 when there is none.
func (p Page[T]) NextPage() int {
	if p.Next == "" {
		return 0
	}
	u, err := url.Parse(p.Next)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return 0
	}
	return n
}

// WithQuery appends the non-empty values to path as a query string.
func WithQuery(path string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
