package mcpserver

import (
	"strings"

	"github.com/protokoll/minutes/internal/tags"
)

// SyntaxContract describes the protocol source format that LLM consumers
// should follow when writing or fixing meeting protocols.
var SyntaxContract = strings.ReplaceAll(syntaxContract, "{{STATES}}", strings.Join(tags.KnownStates(), ", "))

const syntaxContract = `# Protocol Source Format

Every protocol is a plain UTF-8 text file stored as
` + "`" + `<series short name>/<YYYY-MM-DD>.txt` + "`" + ` in the vault.

## Structure

` + "```" + `
#Datum;01.03.2024
#Beginn;18:00
#Ende;20:00
TOP Begrüßung {
  Es wird begrüßt.;
  [beschluss;Die Kaffeemaschine wird repariert.;Finanzen];
  [todo;Alice;Kaffeemaschine reparieren;ab;15.03.2024];
  Intern {
    Kassenstand besprochen.;
  }
}
{!TOP Haushalt
  Wird separat exportiert.;
}
` + "```" + `

## Rules

1. **Remarks** are lines ` + "`" + `#key;value` + "`" + `. ` + "`" + `Datum` + "`" + ` (DD.MM.YYYY), ` + "`" + `Beginn` + "`" + ` and
   ` + "`" + `Ende` + "`" + ` (HH:MM) are required, plus every meta field declared for the series.
   ` + "`" + `Datum` + "`" + ` must equal the date of the meeting.
2. **Blocks** are ` + "`" + `Name { ... }` + "`" + `. Top-level blocks named ` + "`" + `TOP Name {` + "`" + ` or written
   ` + "`" + `{TOP Name` + "`" + ` are agenda items; ` + "`" + `{!TOP Name` + "`" + ` marks an agenda item exported separately.
   Every opening brace needs a closing brace.
3. **Content** lines end with ` + "`" + `;` + "`" + ` and may contain tags ` + "`" + `[name;arg;...]` + "`" + `.
4. **Internal sections** are blocks named private, internal, privat or intern
   (case-insensitive, a trailing colon is ignored). They only appear in internal renders.

## Tags

- ` + "`" + `[url;https://example.org]` + "`" + `: a link.
- ` + "`" + `[footnote;text]` + "`" + `: a footnote.
- ` + "`" + `[todo;WHO;WHAT;FIELD...]` + "`" + `: an action item. Fields are ` + "`" + `id N` + "`" + ` to continue an
  existing item, a state, a date DD.MM.YYYY, or a state with date such as ` + "`" + `vor 01.05.2024` + "`" + `.
  The states ` + "`" + `ab` + "`" + ` and ` + "`" + `vor` + "`" + ` need a date. Todos only appear in internal renders.
  Known states: {{STATES}}.
- ` + "`" + `[beschluss;TEXT;CATEGORY...]` + "`" + `: a decision. Categories must be declared for the
  series. Decisions must not be inside an internal section.
- ` + "`" + `[sitzung;DATE;HH:MM]` + "`" + `: announces the next meeting of the series, which is created
  on parse. DATE accepts DD.MM.YYYY, DD.MM.YY, YYYY-MM-DD, "1. März 2024" and DD.MM.

Any other tag name is an error; usually a semicolon is missing.

## Workflow

Call ` + "`" + `check_protocol` + "`" + ` with the source before saving it. It returns the first fatal
diagnostic with the surrounding lines, or the parsed structure and any warnings.
`
