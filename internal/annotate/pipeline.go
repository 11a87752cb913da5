package annotate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/marginalia-app/marginalia/internal/models"
)

// RenderError indicates that the source bytes could not be processed as a
// PDF document. It aborts the whole request; per-page and per-highlight draw
// failures never surface as a RenderError.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render: %v", e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// Pipeline turns a source PDF plus a document's highlights into a new PDF
// with the highlight overlays and footnote blocks burned into the page
// content. A Pipeline is stateless; one instance serves concurrent requests.
type Pipeline struct {
	est Estimator
	log *slog.Logger
}

func NewPipeline(log *slog.Logger) *Pipeline {
	return &Pipeline{est: OffsetEstimator{}, log: log}
}

// fontRes holds the indirect objects the renderers reference from page
// resource dictionaries, created once per Render call.
type fontRes struct {
	regular *types.IndirectRef
	bold    *types.IndirectRef
	alpha   *types.IndirectRef
}

func readConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Classic cross-reference table and unpacked objects, so the output stays
	// editable by tools that do not handle object streams.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// PageCount parses source and returns its page count. Shares the pipeline's
// relaxed-validation read path so upload and render agree on what parses.
func PageCount(source []byte) (int, error) {
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(source), readConf())
	if err != nil {
		return 0, &RenderError{Err: err}
	}
	return pctx.PageCount, nil
}

// Render produces the annotated PDF bytes for doc. The source document
// structure is preserved; each page gains one extra content stream. Pages
// that fail to render are logged and left untouched; a parse or serialize
// failure aborts with an error and no bytes are returned.
func (p *Pipeline) Render(ctx context.Context, source []byte, doc *models.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(source), readConf())
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	fonts, err := embedFonts(pctx)
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("embedding fonts: %w", err)}
	}

	log := p.log.With("documentId", doc.ID)
	for i := 0; i < pctx.PageCount; i++ {
		hs := doc.HighlightsForPage(i + 1)
		if len(hs) == 0 {
			continue
		}
		if err := p.renderPage(pctx, i, pctx.PageCount, hs, fonts, log); err != nil {
			log.Error("page render failed, leaving page unannotated", "page", i+1, "error", err)
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("serializing annotated document: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) renderPage(pctx *model.Context, pageIndex, totalPages int, hs []models.Highlight, fonts fontRes, log *slog.Logger) error {
	pageDict, _, inhPAttrs, err := pctx.PageDict(pageIndex+1, false)
	if err != nil {
		return fmt.Errorf("resolving page dict: %w", err)
	}
	if pageDict == nil {
		return errors.New("page dict not found")
	}

	mediaBox := inhPAttrs.MediaBox
	if mediaBox == nil {
		mediaBox = types.NewRectangle(0, 0, 612, 792)
	}

	w := &contentWriter{}
	renderHighlights(w, hs, mediaBox.Height(), p.est, log.With("page", pageIndex+1))
	if hasComments(hs) {
		if err := renderFootnotes(w, hs, pageIndex, totalPages, mediaBox.Width()); err != nil {
			// The block is cosmetic; whatever was drawn before the failure
			// stays, the page itself is kept.
			log.Warn("footnote block incomplete", "page", pageIndex+1, "error", err)
		}
	}
	if w.Empty() {
		return nil
	}

	if err := appendPageContent(pctx, pageDict, w.Bytes()); err != nil {
		return fmt.Errorf("appending page content: %w", err)
	}
	return ensurePageResources(pctx, pageDict, inhPAttrs.Resources, fonts)
}

// embedFonts registers the two standard-14 fonts and the highlight alpha
// ExtGState as indirect objects. Standard fonts carry no font program, so
// this is cheap and idempotent per pipeline run.
func embedFonts(pctx *model.Context) (fontRes, error) {
	var f fontRes
	var err error

	f.regular, err = pctx.IndRefForNewObject(standardFontDict("Helvetica"))
	if err != nil {
		return f, err
	}
	f.bold, err = pctx.IndRefForNewObject(standardFontDict("Helvetica-Bold"))
	if err != nil {
		return f, err
	}
	f.alpha, err = pctx.IndRefForNewObject(types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(0.3),
		"CA":   types.Float(1),
	})
	return f, err
}

func standardFontDict(baseFont string) types.Dict {
	return types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(baseFont),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
}

// appendPageContent attaches ops as an extra content stream after the page's
// existing content. The original content is bracketed with q/Q so leftover
// graphics state cannot leak into the overlay.
func appendPageContent(pctx *model.Context, pageDict types.Dict, ops []byte) error {
	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		ref, err := newContentStream(pctx, ops)
		if err != nil {
			return err
		}
		pageDict["Contents"] = *ref
		return nil
	}

	pre, err := newContentStream(pctx, []byte("q\n"))
	if err != nil {
		return err
	}
	post, err := newContentStream(pctx, append([]byte("Q\n"), ops...))
	if err != nil {
		return err
	}

	switch o := obj.(type) {
	case types.Array:
		arr := append(types.Array{*pre}, o...)
		pageDict["Contents"] = append(arr, *post)
	case types.IndirectRef:
		resolved, err := pctx.Dereference(o)
		if err != nil {
			return err
		}
		if origArr, ok := resolved.(types.Array); ok {
			arr := append(types.Array{*pre}, origArr...)
			pageDict["Contents"] = append(arr, *post)
		} else {
			pageDict["Contents"] = types.Array{*pre, o, *post}
		}
	default:
		return fmt.Errorf("unexpected Contents entry %T", obj)
	}
	return nil
}

func newContentStream(pctx *model.Context, b []byte) (*types.IndirectRef, error) {
	sd, err := pctx.XRefTable.NewStreamDictForBuf(b)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return pctx.IndRefForNewObject(*sd)
}

// ensurePageResources makes the pipeline's font and ExtGState names
// resolvable from the page. Missing Resources dictionaries fall back to the
// inherited one, or a fresh dict when the tree has none.
func ensurePageResources(pctx *model.Context, pageDict, inherited types.Dict, fonts fontRes) error {
	var res types.Dict
	if obj, found := pageDict.Find("Resources"); found && obj != nil {
		d, err := pctx.DereferenceDict(obj)
		if err != nil {
			return err
		}
		res = d
	}
	if res == nil {
		if inherited != nil {
			res = inherited
		} else {
			res = types.Dict{}
		}
		pageDict["Resources"] = res
	}

	fontDict, err := resourceSubDict(pctx, res, "Font")
	if err != nil {
		return err
	}
	fontDict[fontRegularName] = *fonts.regular
	fontDict[fontBoldName] = *fonts.bold

	gsDict, err := resourceSubDict(pctx, res, "ExtGState")
	if err != nil {
		return err
	}
	gsDict[highlightGSName] = *fonts.alpha
	return nil
}

func resourceSubDict(pctx *model.Context, res types.Dict, name string) (types.Dict, error) {
	if obj, found := res.Find(name); found && obj != nil {
		d, err := pctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	d := types.Dict{}
	res[name] = d
	return d, nil
}
