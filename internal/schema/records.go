package schema

import "time"

// Entity names used in failures and reports.
const (
	EntityLibrary = "library"
	EntityAuthor  = "author"
	EntityBook    = "book"
	EntityMember  = "member"
)

// Member types accepted by the member schema, in canonical spelling.
const (
	MemberStudent = "Student"
	MemberFaculty = "Faculty"
)

// LibraryFields defines the fields of a library row.
var LibraryFields = []FieldSpec{
	{Name: "library_id", Type: FieldInt},
	{Name: "name", Type: FieldName, Required: true, MaxLen: 30},
	{Name: "campus_location", Type: FieldText, Required: true, MaxLen: 30},
	{Name: "contact_email", Type: FieldEmail, Required: true, MaxLen: 50},
	{Name: "phone_number", Type: FieldPhone, Required: true, MaxLen: 20},
}

// AuthorFields defines the fields of an author row.
var AuthorFields = []FieldSpec{
	{Name: "first_name", Type: FieldName, Required: true, MaxLen: 20},
	{Name: "last_name", Type: FieldName, Required: true, MaxLen: 20},
	{Name: "birth_date", Type: FieldDate},
	{Name: "nationality", Type: FieldText, MaxLen: 20},
	{Name: "biography", Type: FieldText},
}

// BookFields defines the fields of a book row.
var BookFields = []FieldSpec{
	{Name: "title", Type: FieldName, Required: true, MaxLen: 50},
	{Name: "isbn", Type: FieldISBN, Required: true, MaxLen: 15},
	{Name: "publication_date", Type: FieldDate},
	{Name: "total_copies", Type: FieldInt, Required: true},
	{Name: "available_copies", Type: FieldInt, Required: true},
	{Name: "library_id", Type: FieldInt, Required: true},
}

// MemberFields defines the fields of a member row.
var MemberFields = []FieldSpec{
	{Name: "first_name", Type: FieldName, Required: true, MaxLen: 20},
	{Name: "last_name", Type: FieldName, Required: true, MaxLen: 20},
	{Name: "contact_email", Type: FieldEmail, Required: true, MaxLen: 50},
	{Name: "phone_number", Type: FieldPhone, Required: true, MaxLen: 20},
	{Name: "member_type", Type: FieldEnum, Required: true, EnumValues: []string{MemberStudent, MemberFaculty}},
	{Name: "registration_date", Type: FieldDate, Required: true},
}

// Library is a validated library record. ID is nil when the row did not
// carry an explicit library_id.
type Library struct {
	ID             *int64
	Name           string
	CampusLocation string
	ContactEmail   string
	PhoneNumber    string
}

// Author is a validated author record. Empty Nationality and Biography are
// stored as NULL.
type Author struct {
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	Nationality string
	Biography   string
}

// AuthorKey is the natural identity of an author.
type AuthorKey struct {
	FirstName string
	LastName  string
	BirthDate string // YYYY-MM-DD, empty when unknown
}

// Key returns the author's natural key.
func (a Author) Key() AuthorKey {
	k := AuthorKey{FirstName: a.FirstName, LastName: a.LastName}
	if a.BirthDate != nil {
		k.BirthDate = a.BirthDate.Format(DateLayout)
	}
	return k
}

// Book is a validated book record.
type Book struct {
	Title           string
	ISBN            string
	PublicationDate *time.Time
	TotalCopies     int64
	AvailableCopies int64
	LibraryID       int64
}

// Member is a validated member record.
type Member struct {
	FirstName        string
	LastName         string
	ContactEmail     string
	PhoneNumber      string
	MemberType       string
	RegistrationDate time.Time
}

// DateLayout is the canonical date representation used in keys and stores.
const DateLayout = "2006-01-02"
