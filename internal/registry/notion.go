package registry

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/pkg/notion"
)

// Notion property names in the ICP ruleset database.
const (
	propRulesetID  = "Ruleset ID"
	propName       = "Name"
	propDefinition = "Definition"
	propCriteria   = "Criteria"
)

// NotionResolver looks rulesets up in a Notion database.
type NotionResolver struct {
	client notion.Client
	dbID   string
}

// NewNotionResolver creates a resolver over the given database.
func NewNotionResolver(client notion.Client, dbID string) *NotionResolver {
	return &NotionResolver{client: client, dbID: dbID}
}

// Resolve implements Resolver.
func (n *NotionResolver) Resolve(ctx context.Context, id string) (*Ruleset, error) {
	pages, err := notion.FindByText(ctx, n.client, n.dbID, propRulesetID, id)
	if err != nil {
		return nil, eris.Wrap(err, "registry: notion lookup")
	}
	for _, p := range pages {
		rs, err := parseRulesetPage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed ruleset page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		if rs.ID == "" {
			rs.ID = id
		}
		return &rs, nil
	}
	return nil, nil
}

func parseRulesetPage(p notionapi.Page) (Ruleset, error) {
	var rs Ruleset

	// Ruleset ID (rich_text)
	if prop, ok := p.Properties[propRulesetID]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			rs.ID = plainText(rtp.RichText)
		}
	}

	// Name (title)
	if prop, ok := p.Properties[propName]; ok {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			rs.Name = plainText(tp.Title)
		}
	}

	// Definition (rich_text)
	if prop, ok := p.Properties[propDefinition]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			rs.Definition = plainText(rtp.RichText)
		}
	}

	// Criteria (multi_select)
	if prop, ok := p.Properties[propCriteria]; ok {
		if msp, ok := prop.(*notionapi.MultiSelectProperty); ok {
			for _, opt := range msp.MultiSelect {
				rs.Criteria = append(rs.Criteria, opt.Name)
			}
		}
	}

	if rs.Definition == "" && len(rs.Criteria) == 0 {
		return rs, eris.New("missing Definition and Criteria")
	}
	return rs, nil
}

// plainText concatenates the plain_text values from a slice of RichText.
func plainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
