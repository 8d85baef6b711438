package diag

// Collector accumulates diagnostics of one run in emission order.
type Collector struct {
	items []*Diagnostic
}

// Add records d and returns it for chaining. Nil is ignored.
func (c *Collector) Add(d *Diagnostic) *Diagnostic {
	if d != nil {
		c.items = append(c.items, d)
	}
	return d
}

// Warnings returns the non-fatal diagnostics.
func (c *Collector) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range c.items {
		if !d.Fatal() {
			out = append(out, d)
		}
	}
	return out
}
