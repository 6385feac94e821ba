package catalog

import "strings"

// ignoreOwnerSuffix marks a descriptor that fans out to every subscriber.
const ignoreOwnerSuffix = "+"

// Descriptor is the parsed automatic trigger of an event, written as
// "app.Model.action" with an optional trailing "+".
type Descriptor struct {
	Model       string
	Action      string
	IgnoreOwner bool
}

// String renders the descriptor in configuration form.
func (d Descriptor) String() string {
	s := d.Model + "." + d.Action
	if d.IgnoreOwner {
		s += ignoreOwnerSuffix
	}
	return s
}

// ParseDescriptor splits raw at its last dot. The model part keeps any inner
// dots, so "blog.Comment.created" yields model "blog.Comment".
func ParseDescriptor(event, raw string) (Descriptor, error) {
	var d Descriptor
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, ignoreOwnerSuffix) {
		d.IgnoreOwner = true
		s = strings.TrimSuffix(s, ignoreOwnerSuffix)
	}

	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return Descriptor{}, &ConfigurationError{
			Event:      event,
			Descriptor: raw,
			Reason:     "descriptor must have the form model.action",
		}
	}

	d.Model, d.Action = s[:i], s[i+1:]
	return d, nil
}
