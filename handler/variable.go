package handler

import (
	"maps"
)

// Variables is used to collect the variables, a handler sets when it completes an element.
type Variables map[string]any

// Delete marks a variable for deletion.
func (v Variables) Delete(name string) {
	if name != "" {
		v[name] = nil
	}
}

func (v Variables) IsDeleted(name string) bool {
	value, ok := v[name]
	return ok && value == nil
}

func (v Variables) Put(name string, value any) {
	if name != "" {
		v[name] = value
	}
}

func (v Variables) PutAll(variables map[string]any) {
	for name, value := range variables {
		v.Put(name, value)
	}
}

// copy returns a copy or nil, if no variable has been put or deleted.
func (v Variables) copy() map[string]any {
	if len(v) == 0 {
		return nil
	}
	return maps.Clone(v)
}
