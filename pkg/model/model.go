package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Status is the moderation state of a listing.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known moderation states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Rent is the monthly rent as the owner typed it (e.g. "4000" or "4000/month").
// Clients may send it as a JSON number or string; it is always stored as text.
type Rent string

func (r *Rent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Rent(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = Rent(n.String())
	return nil
}

// Amount parses the leading decimal integer of the rent text. ok is false when
// the text does not start with a number.
func (r Rent) Amount() (amount int64, ok bool) {
	s := []rune(string(r))
	i := 0
	for i < len(s) && isJSSpace(s[i]) {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(string(s[start:i]), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isJSSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r', '\u00a0', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return false
}

// Listing is the room-rental offer stored twice: once in the owner's
// ownerListings collection and once in the public listings collection.
type Listing struct {
	ID          string `json:"id" firestore:"-" bson:"_id"`
	Title       string `json:"title" firestore:"title" bson:"title"`
	Rent        Rent   `json:"rent" firestore:"rent" bson:"rent"`
	Amenities   string `json:"amenities" firestore:"amenities" bson:"amenities"`
	ContactInfo string `json:"contactInfo" firestore:"contactInfo" bson:"contactInfo"`
	Location    string `json:"location" firestore:"location" bson:"location"`
	PhotoURL    string `json:"photoUrl" firestore:"photoUrl" bson:"photoUrl"`
	Description string `json:"description" firestore:"description" bson:"description"`
	OwnerID     string `json:"ownerId" firestore:"ownerId" bson:"ownerId"`
	IsBooked    bool   `json:"isBooked" firestore:"isBooked" bson:"isBooked"`
	Status      Status `json:"status" firestore:"status" bson:"status"`
	Timestamp   int64  `json:"timestamp" firestore:"timestamp" bson:"timestamp"` // creation time, unix millis
}

// CreatedAt converts the millisecond timestamp to a time.Time.
func (l Listing) CreatedAt() time.Time {
	return time.UnixMilli(l.Timestamp)
}

// ListingDraft carries the owner-editable fields of a listing.
type ListingDraft struct {
	Title       string `json:"title"`
	Rent        Rent   `json:"rent"`
	Amenities   string `json:"amenities"`
	ContactInfo string `json:"contactInfo"`
	Location    string `json:"location"`
	PhotoURL    string `json:"photoUrl"`
	Description string `json:"description"`
}

// ListingPatch is a partial update. Nil fields are left untouched.
type ListingPatch struct {
	Title       *string
	Rent        *Rent
	Amenities   *string
	ContactInfo *string
	Location    *string
	PhotoURL    *string
	Description *string
	IsBooked    *bool
	Status      *Status
}

// PatchFromDraft builds a patch that overwrites every editable field.
func PatchFromDraft(d ListingDraft) ListingPatch {
	return ListingPatch{
		Title:       &d.Title,
		Rent:        &d.Rent,
		Amenities:   &d.Amenities,
		ContactInfo: &d.ContactInfo,
		Location:    &d.Location,
		PhotoURL:    &d.PhotoURL,
		Description: &d.Description,
	}
}

// Fields returns the patch keyed by stored field name, for stores that take
// field-path updates (Firestore Update, Mongo $set).
func (p ListingPatch) Fields() map[string]any {
	out := make(map[string]any)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Rent != nil {
		out["rent"] = string(*p.Rent)
	}
	if p.Amenities != nil {
		out["amenities"] = *p.Amenities
	}
	if p.ContactInfo != nil {
		out["contactInfo"] = *p.ContactInfo
	}
	if p.Location != nil {
		out["location"] = *p.Location
	}
	if p.PhotoURL != nil {
		out["photoUrl"] = *p.PhotoURL
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.IsBooked != nil {
		out["isBooked"] = *p.IsBooked
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	return out
}

// ApplyTo returns l with the patch applied.
func (p ListingPatch) ApplyTo(l Listing) Listing {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Rent != nil {
		l.Rent = *p.Rent
	}
	if p.Amenities != nil {
		l.Amenities = *p.Amenities
	}
	if p.ContactInfo != nil {
		l.ContactInfo = *p.ContactInfo
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.PhotoURL != nil {
		l.PhotoURL = *p.PhotoURL
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.IsBooked != nil {
		l.IsBooked = *p.IsBooked
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return l
}

// Review is an immutable rating left by a student on a public listing.
type Review struct {
	ID         string `json:"id" firestore:"-" bson:"_id"`
	ListingID  string `json:"listingId" firestore:"-" bson:"listingId"` // implicit from the subcollection path in Firestore
	ReviewerID string `json:"reviewerId" firestore:"reviewerId" bson:"reviewerId"`
	Rating     int    `json:"rating" firestore:"rating" bson:"rating"`
	Comment    string `json:"comment" firestore:"comment" bson:"comment"`
	Timestamp  int64  `json:"timestamp" firestore:"timestamp" bson:"timestamp"`
}

// ReconcileStats stores counters for a reconcile pass.
type ReconcileStats struct {
	Scanned  int `json:"scanned" firestore:"scanned" bson:"scanned"`
	InSync   int `json:"inSync" firestore:"inSync" bson:"inSync"`
	Repaired int `json:"repaired" firestore:"repaired" bson:"repaired"`
	Restored int `json:"restored" firestore:"restored" bson:"restored"` // public copy recreated from private
	Removed  int `json:"removed" firestore:"removed" bson:"removed"`    // orphaned public copy deleted
	Failed   int `json:"failed" firestore:"failed" bson:"failed"`
}

// ReconcileRun tracks the lifecycle of a reconcile execution.
type ReconcileRun struct {
	RunID       string         `json:"runId,omitempty" firestore:"runId,omitempty" bson:"_id"`
	Status      string         `json:"status,omitempty" firestore:"status,omitempty" bson:"status"`
	DryRun      bool           `json:"dryRun" firestore:"dryRun" bson:"dryRun"`
	Stats       ReconcileStats `json:"stats" firestore:"stats" bson:"stats"`
	StartedAt   time.Time      `json:"startedAt,omitempty" firestore:"startedAt,omitempty" bson:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty" bson:"finishedAt"`
	ErrorSample []ErrorSample  `json:"errorsSample,omitempty" firestore:"errorsSample,omitempty" bson:"errorsSample,omitempty"`
}

// ErrorSample captures a subset of errors for observability without heavy logging.
type ErrorSample struct {
	ListingID string `json:"listingId,omitempty" firestore:"listingId,omitempty" bson:"listingId,omitempty"`
	Reason    string `json:"reason,omitempty" firestore:"reason,omitempty" bson:"reason,omitempty"`
}

// ListingStats is a singleton document that pre-aggregates admin dashboard metrics.
type ListingStats struct {
	LastUpdated   time.Time      `json:"lastUpdated,omitempty" firestore:"lastUpdated,omitempty" bson:"lastUpdated"`
	TotalListings int            `json:"totalListings" firestore:"totalListings" bson:"totalListings"`
	Pending       int            `json:"pending" firestore:"pending" bson:"pending"`
	Approved      int            `json:"approved" firestore:"approved" bson:"approved"`
	Rejected      int            `json:"rejected" firestore:"rejected" bson:"rejected"`
	Booked        int            `json:"booked" firestore:"booked" bson:"booked"`
	Visible       int            `json:"visible" firestore:"visible" bson:"visible"`
	AvgRent       float64        `json:"avgRent" firestore:"avgRent" bson:"avgRent"`
	ByOwner       map[string]int `json:"byOwner,omitempty" firestore:"byOwner,omitempty" bson:"byOwner,omitempty"`
}
