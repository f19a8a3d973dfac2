package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ovasylenko/contactbook-backend/internal/models"
	"github.com/ovasylenko/contactbook-backend/internal/services"
)

type ContactRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Birthday       string `json:"birthday,omitempty"` // YYYY-MM-DD
	AdditionalData string `json:"additional_data,omitempty"`
}

type ContactListResponse struct {
	Success  bool              `json:"success"`
	Contacts []*models.Contact `json:"contacts"`
	Total    int               `json:"total"`
}

func (req *ContactRequest) validate() error {
	if req.FirstName == "" {
		return errors.New("First name is required")
	}
	if req.LastName == "" {
		return errors.New("Last name is required")
	}
	if req.Birthday != "" {
		if _, err := time.Parse("2006-01-02", req.Birthday); err != nil {
			return errors.New("Birthday must be in YYYY-MM-DD format")
		}
	}
	return nil
}

func (req *ContactRequest) toModel() *models.Contact {
	return &models.Contact{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Birthday:       req.Birthday,
		AdditionalData: req.AdditionalData,
	}
}

// CreateContact creates a contact owned by the authenticated user.
func CreateContact(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	contact, err := services.CreateContact(snapshot.ID, req.toModel())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create contact")
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

// GetContacts lists the authenticated user's contacts with paging.
func GetContacts(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	contacts, err := services.GetContacts(snapshot.ID, skip, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch contacts")
		return
	}

	writeJSON(w, http.StatusOK, ContactListResponse{Success: true, Contacts: contacts, Total: len(contacts)})
}

// FindContacts searches the user's contacts by name or email.
func FindContacts(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusUnprocessableEntity, "Search query is required")
		return
	}

	contacts, err := services.SearchContacts(snapshot.ID, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to search contacts")
		return
	}

	writeJSON(w, http.StatusOK, ContactListResponse{Success: true, Contacts: contacts, Total: len(contacts)})
}

// UpcomingBirthdays lists contacts with birthdays in the next 7 days.
func UpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	contacts, err := services.UpcomingBirthdays(snapshot.ID, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch contacts")
		return
	}

	writeJSON(w, http.StatusOK, ContactListResponse{Success: true, Contacts: contacts, Total: len(contacts)})
}

// GetContact returns one contact; 404 when absent or owned by another user.
func GetContact(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	contactID, ok := contactIDParam(w, r)
	if !ok {
		return
	}

	contact, err := services.GetContact(snapshot.ID, contactID)
	if err != nil {
		if errors.Is(err, services.ErrContactNotFound) {
			writeError(w, http.StatusNotFound, "Contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch contact")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// UpdateContact replaces a contact's fields.
func UpdateContact(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	contactID, ok := contactIDParam(w, r)
	if !ok {
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	contact, err := services.UpdateContact(snapshot.ID, contactID, req.toModel())
	if err != nil {
		if errors.Is(err, services.ErrContactNotFound) {
			writeError(w, http.StatusNotFound, "Contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update contact")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// DeleteContact removes a contact.
func DeleteContact(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	contactID, ok := contactIDParam(w, r)
	if !ok {
		return
	}

	if err := services.DeleteContact(snapshot.ID, contactID); err != nil {
		if errors.Is(err, services.ErrContactNotFound) {
			writeError(w, http.StatusNotFound, "Contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete contact")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Contact deleted successfully"})
}

func contactIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	contactID, err := uuid.Parse(chi.URLParam(r, "contactID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Contact not found")
		return uuid.Nil, false
	}
	return contactID, true
}
