// Package roster imports parent contact records from vCard data, either
// a local .vcf file or a CardDAV/WebDAV export fetched over HTTP.
package roster

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"coparentcal/internal/config"
	"coparentcal/internal/model"
)

// Load parses a vCard stream into Parent records. Malformed cards are
// skipped with a warning so one bad export entry does not sink the whole
// import; cards without any usable name get the fallback name.
func Load(r io.Reader) ([]model.Parent, error) {
	decoder := vcard.NewDecoder(r)
	log := slog.With(slog.String(config.LogKeyComponent, config.CompRoster))

	var parents []model.Parent
	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			continue
		}
		parents = append(parents, fromCard(card))
	}

	if parents == nil {
		return nil, fmt.Errorf("%s: no readable cards", config.ErrRosterParse)
	}
	return parents, nil
}

// fromCard maps one vCard onto a Parent. The ID is derived from the
// card's identity fields so repeated imports of the same roster yield
// stable IDs.
func fromCard(card vcard.Card) model.Parent {
	p := model.Parent{Name: config.FallbackName}

	if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
		p.Name = fn.Value
	} else if n := card.Get(config.VCardN); n != nil && n.Value != "" {
		p.Name = n.Value
	}
	if email := card.Get(config.VCardEmail); email != nil {
		p.Email = email.Value
	}
	if tel := card.Get(config.VCardTel); tel != nil {
		p.Phone = tel.Value
	}

	p.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.Name+"|"+p.Email+"|"+p.Phone))
	return p
}
