package main

import (
	"net/mail"
	"strings"
)

// Validation failures are reported per field. The first failing rule per
// field wins; multiple fields can fail at once.

func validateRegistration(email, fullname, password, repeated string) map[string]string {
	errs := map[string]string{}
	email = strings.TrimSpace(email)
	if email == "" {
		errs["email"] = "This field may not be blank."
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Enter a valid email address."
	}
	if strings.TrimSpace(fullname) == "" {
		errs["fullname"] = "This field may not be blank."
	}
	if password == "" {
		errs["password"] = "This field may not be blank."
	} else if len(password) < 8 {
		errs["password"] = "Password must be at least 8 characters long."
	}
	if repeated == "" {
		errs["repeated_password"] = "This field may not be blank."
	} else if password != "" && password != repeated {
		errs["repeated_password"] = "Passwords do not match."
	}
	return errs
}

func validateTaskInput(in TaskInput) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = "This field may not be blank."
	}
	if !validStatus(in.Status) {
		errs["status"] = "\"" + in.Status + "\" is not a valid choice."
	}
	if !validPriority(in.Priority) {
		errs["priority"] = "\"" + in.Priority + "\" is not a valid choice."
	}
	return errs
}

func validateTaskPatch(p TaskPatch) map[string]string {
	errs := map[string]string{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs["title"] = "This field may not be blank."
	}
	if p.Status != nil && !validStatus(*p.Status) {
		errs["status"] = "\"" + *p.Status + "\" is not a valid choice."
	}
	if p.Priority != nil && !validPriority(*p.Priority) {
		errs["priority"] = "\"" + *p.Priority + "\" is not a valid choice."
	}
	return errs
}
