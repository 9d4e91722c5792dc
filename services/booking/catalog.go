package booking

import "medibook/models"

// Catalog resolves appointment type codes to their duration and price.
type Catalog interface {
	Lookup(code string) (models.AppointmentType, bool)
	List() []models.AppointmentType
}

// StaticCatalog is an immutable in-memory catalog loaded from configuration.
type StaticCatalog struct {
	types []models.AppointmentType
	byKey map[string]models.AppointmentType
}

func NewStaticCatalog(types []models.AppointmentType) *StaticCatalog {
	c := &StaticCatalog{byKey: make(map[string]models.AppointmentType, len(types))}
	for _, t := range types {
		if _, dup := c.byKey[t.Code]; dup {
			continue
		}
		c.types = append(c.types, t)
		c.byKey[t.Code] = t
	}
	return c
}

func (c *StaticCatalog) Lookup(code string) (models.AppointmentType, bool) {
	t, ok := c.byKey[code]
	return t, ok
}

func (c *StaticCatalog) List() []models.AppointmentType {
	return append([]models.AppointmentType(nil), c.types...)
}
