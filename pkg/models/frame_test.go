package models

import (
	"image"
	"testing"
)

func TestBitPlane_InkAndCount(t *testing.T) {
	p := NewBitPlane(4, 3)
	if p.Count() != 0 {
		t.Fatalf("new plane should be blank, got %d inked", p.Count())
	}

	p.Ink(1, 1, true)
	p.Ink(3, 2, true)
	p.Ink(10, 10, true) // ignored

	if !p.Inked(1, 1) || !p.Inked(3, 2) {
		t.Error("expected inked pixels")
	}
	if p.Inked(-1, 0) {
		t.Error("out of range must never be inked")
	}
	if p.Count() != 2 {
		t.Errorf("expected 2 inked, got %d", p.Count())
	}
	if p.CountIn(image.Rect(0, 0, 2, 2)) != 1 {
		t.Errorf("expected 1 inked in top-left quadrant")
	}

	p.Ink(1, 1, false)
	if p.Inked(1, 1) {
		t.Error("expected pixel cleared")
	}
}

func TestBitPlane_Images(t *testing.T) {
	p := NewBitPlane(2, 1)
	p.Ink(0, 0, true)

	g := p.Gray()
	if g.GrayAt(0, 0).Y != 0 || g.GrayAt(1, 0).Y != 255 {
		t.Errorf("unexpected gray values %v %v", g.GrayAt(0, 0), g.GrayAt(1, 0))
	}

	pal := p.Paletted()
	if pal.ColorIndexAt(0, 0) != 0 || pal.ColorIndexAt(1, 0) != 1 {
		t.Error("unexpected palette indices")
	}
}

func TestRenderedFrame_ColorRule(t *testing.T) {
	f := NewFrame(3, 1)
	f.Black.Ink(0, 0, true)
	f.Red.Ink(1, 0, true)

	if f.ColorAt(0, 0) != Black {
		t.Error("black plane ink must print black")
	}
	if f.ColorAt(1, 0) != Red {
		t.Error("red plane ink with blank black plane must print red")
	}
	if f.ColorAt(2, 0) != White {
		t.Error("blank on both planes must print white")
	}

	preview := f.Preview()
	if preview.RGBAAt(1, 0) != Red {
		t.Errorf("preview mismatch: %v", preview.RGBAAt(1, 0))
	}
	if err := f.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestRenderedFrame_ValidateRejectsDoubleInk(t *testing.T) {
	f := NewFrame(2, 2)
	f.Black.Ink(1, 1, true)
	f.Red.Ink(1, 1, true)
	if err := f.Validate(); err == nil {
		t.Error("expected error for pixel inked on both planes")
	}

	g := &RenderedFrame{Black: NewBitPlane(2, 2), Red: NewBitPlane(3, 2)}
	if err := g.Validate(); err == nil {
		t.Error("expected error for mismatched planes")
	}
}

func TestRenderedFrame_ResolveOverlap(t *testing.T) {
	f := NewFrame(2, 1)
	f.Black.Ink(0, 0, true)
	f.Red.Ink(0, 0, true)
	f.Red.Ink(1, 0, true)

	f.ResolveOverlap()

	if err := f.Validate(); err != nil {
		t.Fatalf("frame still invalid: %v", err)
	}
	if f.Red.Inked(0, 0) {
		t.Error("red ink under black should be cleared")
	}
	if !f.Red.Inked(1, 0) {
		t.Error("red ink on its own must survive")
	}
}
