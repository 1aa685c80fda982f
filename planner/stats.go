package planner

import (
	pongo2 "github.com/flosch/pongo2/v5"

	"fffplanner/internal/logger"
)

// statsTemplate renders the same kind of human-readable status line the
// donor firmware's toolhead produces, rather than a raw struct dump
// (§4.9). It is observation only and never feeds back into planning.
var statsTemplate = pongo2.Must(pongo2.FromString(
	"queued={{ queued }}/{{ capacity }} head={{ head }} tail={{ tail }}" +
		"{% if tail_entry_speed %} tail_entry_speed={{ tail_entry_speed }}{% endif %}" +
		"{% if pressure_advance %} pressure_advance=on{% endif %}",
))

// Stats renders the diagnostics report described in §4.9.
func (p *Planner) Stats() string {
	var head, tail uint32
	p.ring.crit.Guard(func() {
		head, tail = p.ring.head, p.ring.tail
	})

	ctx := pongo2.Context{
		"queued":          p.MovesPlanned(),
		"capacity":        p.ring.capacity(),
		"head":            head,
		"tail":            tail,
		"pressure_advance": len(p.advanceTables) > 0,
	}
	if b, ok := p.ring.tailBlock(); ok {
		ctx["tail_entry_speed"] = b.EntrySpeed
	}

	out, err := statsTemplate.Execute(ctx)
	if err != nil {
		logger.Errorf("stats: render: %v", err)
		return ""
	}
	return out
}
