package signing

import (
	"fmt"
	"sort"
	"strings"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/placeholders"
)

// AdditionalSigner is a party without a placeholder in the document.
type AdditionalSigner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Recipient is one signing party. Fields is empty for additional signers;
// the provider shows them a generic signature page.
type Recipient struct {
	PlaceholderKey string
	Name           string
	Email          string
	Order          int
	Fields         []placeholders.Position
}

// SigningRequest is the validated recipient list for one dispatch.
type SigningRequest struct {
	DocumentID string
	Name       string
	Recipients []Recipient
}

// BuildSigningRequest produces one recipient per signer-flagged placeholder,
// in placeholder order, followed by the additional signers in the order
// given. Order is priority metadata only; it does not force sequential signing.
func BuildSigningRequest(doc documents.Document, signerEmails map[string]string, additional []AdditionalSigner) (SigningRequest, error) {
	verr := &ValidationError{}
	req := SigningRequest{DocumentID: doc.ID, Name: doc.Title}
	seen := make(map[string]string)

	checkEmail := func(field, email string) bool {
		switch {
		case email == "":
			verr.add(field, "email is required")
			return false
		case !placeholders.IsEmail(email):
			verr.add(field, "invalid email address")
			return false
		}
		key := strings.ToLower(email)
		if first, dup := seen[key]; dup {
			verr.add(field, fmt.Sprintf("duplicate signer email (also used by %s)", first))
			return false
		}
		seen[key] = field
		return true
	}

	signerKeys := make(map[string]bool)
	for _, p := range doc.Placeholders {
		if !p.Signer {
			continue
		}
		signerKeys[p.Name] = true
		field := "signerEmails." + p.Name
		name := strings.TrimSpace(p.Value)
		if name == "" {
			verr.add("placeholders."+p.Name+".value", "signer name is required")
		}
		email := strings.TrimSpace(signerEmails[p.Name])
		if !checkEmail(field, email) || name == "" {
			continue
		}
		r := Recipient{
			PlaceholderKey: p.Name,
			Name:           name,
			Email:          email,
			Order:          len(req.Recipients) + 1,
		}
		if p.Position != nil {
			r.Fields = []placeholders.Position{*p.Position}
		}
		req.Recipients = append(req.Recipients, r)
	}

	var unknown []string
	for key := range signerEmails {
		if !signerKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		verr.add("signerEmails."+key, "not a signer placeholder")
	}

	for i, s := range additional {
		prefix := fmt.Sprintf("additionalSigners[%d]", i)
		name := strings.TrimSpace(s.Name)
		if name == "" {
			verr.add(prefix+".name", "name is required")
		}
		email := strings.TrimSpace(s.Email)
		if !checkEmail(prefix+".email", email) || name == "" {
			continue
		}
		req.Recipients = append(req.Recipients, Recipient{
			Name:  name,
			Email: email,
			Order: len(req.Recipients) + 1,
		})
	}

	if len(verr.Fields) == 0 && len(req.Recipients) == 0 {
		verr.add("signers", "at least one signer is required")
	}
	if len(verr.Fields) > 0 {
		return SigningRequest{}, verr
	}
	return req, nil
}
