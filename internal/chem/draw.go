package chem

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cellWidth  = 220
	cellHeight = 140
	gridCols   = 5
)

// LabeledMolecule is one grid cell: a SMILES string with a caption,
// typically its score.
type LabeledMolecule struct {
	SMILES  string
	Caption string
}

// DrawMolecules renders the molecules as a labeled PNG grid, five cells
// per row. Structures are sketched as a token chain, which is enough to
// eyeball size and composition without a full layout engine.
func DrawMolecules(w io.Writer, molecules []LabeledMolecule) error {
	if len(molecules) == 0 {
		return fmt.Errorf("no molecules to draw")
	}

	rows := (len(molecules) + gridCols - 1) / gridCols
	img := image.NewRGBA(image.Rect(0, 0, gridCols*cellWidth, rows*cellHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, mol := range molecules {
		col := i % gridCols
		row := i / gridCols
		drawCell(img, col*cellWidth, row*cellHeight, mol)
	}
	return png.Encode(w, img)
}

func drawCell(img *image.RGBA, x, y int, mol LabeledMolecule) {
	border := color.RGBA{R: 180, G: 180, B: 180, A: 255}
	for dx := 0; dx < cellWidth; dx++ {
		img.Set(x+dx, y, border)
		img.Set(x+dx, y+cellHeight-1, border)
	}
	for dy := 0; dy < cellHeight; dy++ {
		img.Set(x, y+dy, border)
		img.Set(x+cellWidth-1, y+dy, border)
	}

	drawSketch(img, x, y, mol.SMILES)
	drawText(img, x+8, y+cellHeight-24, truncate(mol.SMILES, 34))
	drawText(img, x+8, y+cellHeight-10, truncate(mol.Caption, 34))
}

// drawSketch places the atom tokens on a circle with bond lines between
// consecutive tokens.
func drawSketch(img *image.RGBA, x, y int, smiles string) {
	tokens, err := Tokenize(smiles)
	if err != nil || len(tokens) == 0 {
		return
	}
	atoms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isAtomToken(tok) {
			atoms = append(atoms, tok)
		}
	}
	if len(atoms) == 0 {
		return
	}
	if len(atoms) > 24 {
		atoms = atoms[:24]
	}

	cx := float64(x + cellWidth/2)
	cy := float64(y + (cellHeight-30)/2)
	radius := 38.0
	bond := color.RGBA{R: 60, G: 60, B: 60, A: 255}

	points := make([]image.Point, len(atoms))
	for i := range atoms {
		angle := 2 * math.Pi * float64(i) / float64(len(atoms))
		points[i] = image.Point{
			X: int(cx + radius*math.Cos(angle)),
			Y: int(cy + radius*math.Sin(angle)),
		}
	}
	for i := 0; i+1 < len(points); i++ {
		drawLine(img, points[i], points[i+1], bond)
	}
	for i, p := range points {
		drawText(img, p.X-3, p.Y+3, atomLabel(atoms[i]))
	}
}

func isAtomToken(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return c == '[' || (c >= 'A' && c <= 'Z') || c == 'c' || c == 'n' || c == 'o' || c == 's'
}

func atomLabel(tok string) string {
	if tok[0] == '[' {
		return truncate(tok[1:len(tok)-1], 3)
	}
	return tok
}

func drawLine(img *image.RGBA, a, b image.Point, c color.Color) {
	steps := int(math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y)))
	if steps == 0 {
		img.Set(a.X, a.Y, c)
		return
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		img.Set(a.X+int(t*float64(b.X-a.X)), a.Y+int(t*float64(b.Y-a.Y)), c)
	}
}

func drawText(img *image.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
