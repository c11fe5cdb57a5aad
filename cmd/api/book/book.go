package book

type Book struct {
	ID   *int
	Name string
	ISBN string
}

/* Returns a copy of the book carrying the given identifier. */
func (b Book) WithID(id int) Book {
	b.ID = &id
	return b
}

/* Reports whether the book carries the given identifier. */
func (b Book) HasID(id int) bool {
	return b.ID != nil && *b.ID == id
}

// Optional holds the result of a lookup by identifier. The zero value is empty.
type Optional struct {
	book    Book
	present bool
}

func Of(b Book) Optional {
	return Optional{book: b, present: true}
}

func Empty() Optional {
	return Optional{}
}

func (o Optional) Get() (Book, bool) {
	return o.book, o.present
}

func (o Optional) IsPresent() bool {
	return o.present
}

// SearchQuery carries the optional search parameters. A nil field was not supplied;
// a pointer to an empty string was supplied empty and still counts as present.
type SearchQuery struct {
	Name *string
	ISBN *string
}
