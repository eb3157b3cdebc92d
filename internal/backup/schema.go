package backup

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/ledgerbook/internal/ledgererr"
)

//go:embed schema.cue
var schemaCUE string

// CheckSchema validates every record of a snapshot document against the
// embedded CUE schema. Returns an INVALID_BACKUP_FORMAT ledgererr listing
// each violation.
func CheckSchema(data []byte) error {
	const op = "check backup schema"

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("%s: compile schema: %w", op, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Snapshot"))

	expr, err := cuejson.Extract("backup.json", data)
	if err != nil {
		return ledgererr.Wrap(ledgererr.CodeInvalidBackupFormat, op, err)
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return ledgererr.Wrap(ledgererr.CodeInvalidBackupFormat, op, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return ledgererr.New(ledgererr.CodeInvalidBackupFormat, op, cueerrors.Details(err, nil))
	}
	return nil
}
