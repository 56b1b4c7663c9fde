package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PayloadKind tags the structured output variant carried by a Turn.
type PayloadKind string

const (
	KindModerator   PayloadKind = "moderator"
	KindParticipant PayloadKind = "participant"
	KindCrossEx     PayloadKind = "crossex"
	KindJudge       PayloadKind = "judge"
	KindWrap        PayloadKind = "discussion_wrap"
)

// Payload is the structured output of one turn. Each handler produces exactly
// one variant.
type Payload interface {
	Kind() PayloadKind
	// Validate checks the payload has the expected shape.
	Validate() error
}

// ModeratorPayload is produced by moderator stages in both debates and discussions.
type ModeratorPayload struct {
	Narrative string `json:"narrative"`
}

func (p *ModeratorPayload) Kind() PayloadKind     { return KindModerator }
func (p *ModeratorPayload) NarrativeText() string { return p.Narrative }

func (p *ModeratorPayload) Validate() error {
	if strings.TrimSpace(p.Narrative) == "" {
		return errors.New("narrative is required")
	}
	return nil
}

// ParticipantPayload is produced by debater and discussion participant stages.
type ParticipantPayload struct {
	Narrative string   `json:"narrative"`
	Question  string   `json:"question"`
	Callbacks []string `json:"callbacks"`
	Tags      []string `json:"tags"`
}

func (p *ParticipantPayload) Kind() PayloadKind     { return KindParticipant }
func (p *ParticipantPayload) NarrativeText() string { return p.Narrative }

func (p *ParticipantPayload) Validate() error {
	if strings.TrimSpace(p.Narrative) == "" {
		return errors.New("narrative is required")
	}
	if p.Callbacks == nil {
		p.Callbacks = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// QuestionAnswer is one exchange in a cross-examination.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CrossExPayload is produced by cross-examination stages.
type CrossExPayload struct {
	Questions []QuestionAnswer `json:"questions"`
	Tags      []string         `json:"tags"`
}

func (p *CrossExPayload) Kind() PayloadKind { return KindCrossEx }

func (p *CrossExPayload) Validate() error {
	if len(p.Questions) == 0 {
		return errors.New("at least one question is required")
	}
	for i, qa := range p.Questions {
		if strings.TrimSpace(qa.Question) == "" {
			return fmt.Errorf("questions[%d].question is empty", i)
		}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// WrapPayload is produced by the closing stage of a discussion.
type WrapPayload struct {
	Narrative           string   `json:"narrative"`
	KeyTakeaways        []string `json:"keyTakeaways"`
	AreasOfAgreement    []string `json:"areasOfAgreement"`
	AreasOfDisagreement []string `json:"areasOfDisagreement"`
	OpenQuestions       []string `json:"openQuestions"`
}

func (p *WrapPayload) Kind() PayloadKind     { return KindWrap }
func (p *WrapPayload) NarrativeText() string { return p.Narrative }

func (p *WrapPayload) Validate() error {
	if strings.TrimSpace(p.Narrative) == "" {
		return errors.New("narrative is required")
	}
	if p.KeyTakeaways == nil || p.AreasOfAgreement == nil || p.AreasOfDisagreement == nil || p.OpenQuestions == nil {
		return errors.New("keyTakeaways, areasOfAgreement, areasOfDisagreement and openQuestions are required")
	}
	return nil
}

// DecodePayload decodes a stored payload of the given kind.
func DecodePayload(kind PayloadKind, data []byte) (Payload, error) {
	var p Payload
	switch kind {
	case KindModerator:
		p = &ModeratorPayload{}
	case KindParticipant:
		p = &ParticipantPayload{}
	case KindCrossEx:
		p = &CrossExPayload{}
	case KindJudge:
		p = &Decision{}
	case KindWrap:
		p = &WrapPayload{}
	default:
		return nil, fmt.Errorf("unknown payload kind: %s", kind)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
	}
	return p, nil
}

// MarshalJSON adds the payload kind so clients can tell variants apart.
func (t *Turn) MarshalJSON() ([]byte, error) {
	type turnAlias Turn
	var kind PayloadKind
	if t.Payload != nil {
		kind = t.Payload.Kind()
	}
	return json.Marshal(struct {
		*turnAlias
		PayloadKind PayloadKind `json:"payload_kind"`
	}{
		turnAlias:   (*turnAlias)(t),
		PayloadKind: kind,
	})
}
