package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
)

type sessionRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	Position       int    `gorm:"not null;index"`
	ConsumerID     string `gorm:"size:256"`
	URLPrefixes    string `gorm:"type:text"`
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (sessionRow) TableName() string {
	return "sessions"
}

type annotationRow struct {
	Seq          uint   `gorm:"primaryKey;autoIncrement"`
	AnnotationID string `gorm:"column:annotation_id;size:64;uniqueIndex"`
	SessionID    string `gorm:"size:64;index"`
	Note         string `gorm:"type:text"`
	Element      string `gorm:"type:text"`
	ReceivedAt   time.Time
}

func (annotationRow) TableName() string {
	return "annotations"
}

func toSessionRow(position int, session domain.Session) (sessionRow, error) {
	prefixes := session.URLPrefixes
	if prefixes == nil {
		prefixes = []string{}
	}
	encoded, err := json.Marshal(prefixes)
	if err != nil {
		return sessionRow{}, fmt.Errorf("encode url prefixes: %w", err)
	}

	return sessionRow{
		ID:             string(session.ID),
		Position:       position,
		ConsumerID:     session.ConsumerID,
		URLPrefixes:    string(encoded),
		CreatedAt:      session.CreatedAt.UTC(),
		LastActivityAt: session.LastActivityAt.UTC(),
	}, nil
}

func fromSessionRow(row sessionRow) (domain.Session, error) {
	prefixes := []string{}
	if row.URLPrefixes != "" {
		if err := json.Unmarshal([]byte(row.URLPrefixes), &prefixes); err != nil {
			return domain.Session{}, fmt.Errorf("decode url prefixes for %s: %w", row.ID, err)
		}
	}

	return domain.Session{
		ID:             domain.SessionID(row.ID),
		ConsumerID:     row.ConsumerID,
		URLPrefixes:    prefixes,
		CreatedAt:      row.CreatedAt.UTC(),
		LastActivityAt: row.LastActivityAt.UTC(),
	}, nil
}

func toAnnotationRow(annotation domain.Annotation) (annotationRow, error) {
	element, err := json.Marshal(annotation.Element)
	if err != nil {
		return annotationRow{}, fmt.Errorf("encode element: %w", err)
	}

	return annotationRow{
		AnnotationID: annotation.ID,
		SessionID:    string(annotation.SessionID),
		Note:         annotation.Note,
		Element:      string(element),
		ReceivedAt:   annotation.ReceivedAt.UTC(),
	}, nil
}

func fromAnnotationRow(row annotationRow) (domain.Annotation, error) {
	var element domain.Element
	if err := json.Unmarshal([]byte(row.Element), &element); err != nil {
		return domain.Annotation{}, fmt.Errorf("decode element for %s: %w", row.AnnotationID, err)
	}

	return domain.Annotation{
		ID:         row.AnnotationID,
		SessionID:  domain.SessionID(row.SessionID),
		Note:       row.Note,
		Element:    element,
		ReceivedAt: row.ReceivedAt.UTC(),
	}, nil
}
