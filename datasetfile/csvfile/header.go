package csvfile

// HeaderContract lists the header names a dataset file may carry.
type HeaderContract struct {
	Required        []string
	Optional        []string
	ExtraAttributes []string
	IDField         string
}

// DefaultContract is the header contract of the matching API.
func DefaultContract() HeaderContract {
	return HeaderContract{
		Required: []string{"first_name", "last_name"},
		Optional: []string{"id", "middle_name", "prefix", "suffix"},
		ExtraAttributes: []string{
			"email", "phone", "address", "city", "state", "zip", "country",
			"company", "title", "linkedin_url", "birth_year", "age",
		},
		IDField: "id",
	}
}

func (c HeaderContract) known(name string) bool {
	return contains(c.Required, name) || contains(c.Optional, name) || contains(c.ExtraAttributes, name)
}

func (c HeaderContract) check(header []string) error {
	for _, name := range header {
		if !c.known(name) {
			return newValidationError(HeaderError, 1, "Invalid header '%s'", name)
		}
	}

	for _, name := range c.Required {
		if !contains(header, name) {
			return newValidationError(HeaderError, 1, "Required header %s not in headers", name)
		}
	}

	for _, name := range header {
		if contains(c.ExtraAttributes, name) {
			return nil
		}
	}
	return newValidationError(HeaderError, 1, "Needs at least one of the extra attribute headers")
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
