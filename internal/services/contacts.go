package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/internal/models"
)

var ErrContactNotFound = errors.New("contact not found")

const contactColumns = `id, user_id, created_at, updated_at, first_name, last_name,
	email, phone, birthday, additional_data`

// CreateContact inserts a contact owned by userID.
func CreateContact(userID uuid.UUID, c *models.Contact) (*models.Contact, error) {
	c.ID = uuid.New()
	c.UserID = userID
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := database.PostgresDB.Exec(`
		INSERT INTO contacts (id, user_id, created_at, updated_at, first_name, last_name, email, phone, birthday, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::date, $10)
	`, c.ID, c.UserID, c.CreatedAt, c.UpdatedAt, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.AdditionalData)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// GetContacts returns the user's contacts, newest first, with paging.
func GetContacts(userID uuid.UUID, skip, limit int) ([]*models.Contact, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := database.PostgresDB.Query(`
		SELECT `+contactColumns+`
		FROM contacts WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, userID, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContacts(rows)
}

// GetContact returns one contact, only when owned by userID.
func GetContact(userID, contactID uuid.UUID) (*models.Contact, error) {
	rows, err := database.PostgresDB.Query(`
		SELECT `+contactColumns+`
		FROM contacts WHERE id = $1 AND user_id = $2
	`, contactID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrContactNotFound
	}
	return contacts[0], nil
}

// UpdateContact replaces the contact's fields. Ownership is enforced in
// the statement itself.
func UpdateContact(userID, contactID uuid.UUID, c *models.Contact) (*models.Contact, error) {
	result, err := database.PostgresDB.Exec(`
		UPDATE contacts
		SET first_name = $3, last_name = $4, email = $5, phone = $6,
			birthday = NULLIF($7, '')::date, additional_data = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, contactID, userID, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.AdditionalData)
	if err != nil {
		return nil, err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, ErrContactNotFound
	}

	return GetContact(userID, contactID)
}

// DeleteContact removes the contact when owned by userID.
func DeleteContact(userID, contactID uuid.UUID) error {
	result, err := database.PostgresDB.Exec(`
		DELETE FROM contacts WHERE id = $1 AND user_id = $2
	`, contactID, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// SearchContacts matches the query against first name, last name and
// email, scoped to the owner.
func SearchContacts(userID uuid.UUID, query string) ([]*models.Contact, error) {
	pattern := "%" + query + "%"
	rows, err := database.PostgresDB.Query(`
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
			AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		ORDER BY last_name, first_name
	`, userID, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContacts(rows)
}

// UpcomingBirthdays returns the user's contacts whose birthday falls in
// the next 7 days, handling the window crossing a month boundary.
func UpcomingBirthdays(userID uuid.UUID, now time.Time) ([]*models.Contact, error) {
	today := now
	end := now.AddDate(0, 0, 7)

	var rows *sql.Rows
	var err error

	if today.Month() == end.Month() {
		rows, err = database.PostgresDB.Query(`
			SELECT `+contactColumns+`
			FROM contacts
			WHERE user_id = $1 AND birthday IS NOT NULL
				AND EXTRACT(MONTH FROM birthday) = $2
				AND EXTRACT(DAY FROM birthday) BETWEEN $3 AND $4
			ORDER BY EXTRACT(MONTH FROM birthday), EXTRACT(DAY FROM birthday)
		`, userID, int(today.Month()), today.Day(), end.Day())
	} else {
		rows, err = database.PostgresDB.Query(`
			SELECT `+contactColumns+`
			FROM contacts
			WHERE user_id = $1 AND birthday IS NOT NULL
				AND ((EXTRACT(MONTH FROM birthday) = $2 AND EXTRACT(DAY FROM birthday) >= $3)
					OR (EXTRACT(MONTH FROM birthday) = $4 AND EXTRACT(DAY FROM birthday) <= $5))
			ORDER BY EXTRACT(MONTH FROM birthday), EXTRACT(DAY FROM birthday)
		`, userID, int(today.Month()), today.Day(), int(end.Month()), end.Day())
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContacts(rows)
}

func scanContacts(rows *sql.Rows) ([]*models.Contact, error) {
	contacts := make([]*models.Contact, 0)
	for rows.Next() {
		var c models.Contact
		var email, phone, additional sql.NullString
		var birthday sql.NullTime

		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
			&c.FirstName, &c.LastName, &email, &phone, &birthday, &additional); err != nil {
			return nil, err
		}

		c.Email = email.String
		c.Phone = phone.String
		c.AdditionalData = additional.String
		if birthday.Valid {
			c.Birthday = birthday.Time.Format("2006-01-02")
		}

		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}
