package rest

import (
	_ "embed"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v3"
)

//go:embed faq.json
var faqJSON []byte

// FAQEntry is one canned question/answer pair for the in-app help bot.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func loadFAQ() ([]FAQEntry, error) {
	var doc struct {
		FAQ []FAQEntry `json:"faq"`
	}
	if err := json.Unmarshal(faqJSON, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse faq asset")
	}
	return doc.FAQ, nil
}

func (s *Server) handleFAQ(c fiber.Ctx) error {
	if s.faq == nil {
		return c.JSON([]FAQEntry{})
	}
	return c.JSON(s.faq)
}
