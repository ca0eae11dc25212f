// Package task defines the record shapes shared by the planner and the
// booking admin. Records carry a fixed required-field set plus an open
// extension map for the rarely-used optional fields the store accepts;
// the extension keys are flattened into the JSON object on the wire.
package task

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kitchenhire/booking-engine/internal/caldate"
)

// NewID returns a client-generated, time-based record id. Minting ids
// locally lets optimistic inserts skip the round trip to the store.
func NewID(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return strconv.FormatInt(now().UnixMilli(), 10)
}

// Record is a planner task. Date is nil for undated tasks.
type Record struct {
	ID        string
	Title     string
	Completed bool
	Date      *caldate.Date
	Project   string
	CreatedAt time.Time
	Extra     map[string]any
}

var recordFields = map[string]bool{
	"id": true, "title": true, "completed": true, "date": true,
	"project": true, "created_at": true,
}

func (r Record) MarshalJSON() ([]byte, error) {
	obj := map[string]any{
		"id":        r.ID,
		"title":     r.Title,
		"completed": r.Completed,
	}
	if r.Date != nil {
		obj["date"] = r.Date.String()
	}
	if r.Project != "" {
		obj["project"] = r.Project
	}
	if !r.CreatedAt.IsZero() {
		obj["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	mergeExtra(obj, r.Extra, recordFields)
	return json.Marshal(obj)
}

func (r *Record) UnmarshalJSON(raw []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	out := Record{}
	if err := popString(obj, "id", &out.ID); err != nil {
		return err
	}
	if err := popString(obj, "title", &out.Title); err != nil {
		return err
	}
	if v, ok := obj["completed"]; ok {
		if err := json.Unmarshal(v, &out.Completed); err != nil {
			return fmt.Errorf("field completed: %w", err)
		}
		delete(obj, "completed")
	}
	if v, ok := obj["date"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("field date: %w", err)
		}
		if s != "" {
			d, err := caldate.Parse(s)
			if err != nil {
				return err
			}
			out.Date = &d
		}
		delete(obj, "date")
	}
	if err := popString(obj, "project", &out.Project); err != nil {
		return err
	}
	if v, ok := obj["created_at"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("field created_at: %w", err)
		}
		if s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("field created_at: %w", err)
			}
			out.CreatedAt = t
		}
		delete(obj, "created_at")
	}
	out.Extra = collectExtra(obj)
	*r = out
	return nil
}

// BookingStatus is the booking lifecycle state as the store records it.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Booking is a confirmed or in-flight hire request.
type Booking struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Postcode   string
	Dates      []caldate.Date
	Status     BookingStatus
	TotalExVAT int
	CreatedAt  time.Time
	Extra      map[string]any
}

var bookingFields = map[string]bool{
	"id": true, "name": true, "email": true, "phone": true, "postcode": true,
	"dates": true, "status": true, "total_ex_vat": true, "created_at": true,
}

func (b Booking) MarshalJSON() ([]byte, error) {
	dates := make([]string, 0, len(b.Dates))
	for _, d := range b.Dates {
		dates = append(dates, d.String())
	}
	obj := map[string]any{
		"id":           b.ID,
		"name":         b.Name,
		"dates":        dates,
		"status":       string(b.Status),
		"total_ex_vat": b.TotalExVAT,
	}
	if b.Email != "" {
		obj["email"] = b.Email
	}
	if b.Phone != "" {
		obj["phone"] = b.Phone
	}
	if b.Postcode != "" {
		obj["postcode"] = b.Postcode
	}
	if !b.CreatedAt.IsZero() {
		obj["created_at"] = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	mergeExtra(obj, b.Extra, bookingFields)
	return json.Marshal(obj)
}

func (b *Booking) UnmarshalJSON(raw []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	out := Booking{}
	for key, dst := range map[string]*string{
		"id": &out.ID, "name": &out.Name, "email": &out.Email,
		"phone": &out.Phone, "postcode": &out.Postcode,
	} {
		if err := popString(obj, key, dst); err != nil {
			return err
		}
	}
	if v, ok := obj["dates"]; ok {
		var dates []caldate.Date
		if err := json.Unmarshal(v, &dates); err != nil {
			return fmt.Errorf("field dates: %w", err)
		}
		out.Dates = dates
		delete(obj, "dates")
	}
	if v, ok := obj["status"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("field status: %w", err)
		}
		out.Status = BookingStatus(s)
		delete(obj, "status")
	}
	if v, ok := obj["total_ex_vat"]; ok {
		if err := json.Unmarshal(v, &out.TotalExVAT); err != nil {
			return fmt.Errorf("field total_ex_vat: %w", err)
		}
		delete(obj, "total_ex_vat")
	}
	if v, ok := obj["created_at"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("field created_at: %w", err)
		}
		if s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("field created_at: %w", err)
			}
			out.CreatedAt = t
		}
		delete(obj, "created_at")
	}
	out.Extra = collectExtra(obj)
	*b = out
	return nil
}

func popString(obj map[string]json.RawMessage, key string, dst *string) error {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	delete(obj, key)
	return nil
}

func mergeExtra(obj map[string]any, extra map[string]any, reserved map[string]bool) {
	for k, v := range extra {
		if reserved[k] {
			continue
		}
		obj[k] = v
	}
}

func collectExtra(obj map[string]json.RawMessage) map[string]any {
	if len(obj) == 0 {
		return nil
	}
	extra := make(map[string]any, len(obj))
	for k, v := range obj {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			continue
		}
		extra[k] = decoded
	}
	return extra
}
