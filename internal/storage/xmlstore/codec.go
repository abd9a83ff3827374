// Package xmlstore keeps airports as one XML document per airport
package xmlstore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/yegors/runway-redeclaration/internal/model"
)

// ErrMalformed is returned when a document does not have the airport layout
var ErrMalformed = errors.New("malformed airport document")

type airportElem struct {
	XMLName xml.Name     `xml:"airport"`
	Name    *string      `xml:"name,attr"`
	Runways []runwayElem `xml:"runway"`
}

type runwayElem struct {
	Designator *string        `xml:"runway_designator,attr"`
	TORA       *string        `xml:"TORA"`
	TODA       *string        `xml:"TODA"`
	ASDA       *string        `xml:"ASDA"`
	LDA        *string        `xml:"LDA"`
	Displaced  *string        `xml:"displaced_threshold"`
	Obstacles  []obstacleElem `xml:"obstacle"`
}

type obstacleElem struct {
	Name              *string `xml:"name,attr"`
	Height            *string `xml:"height"`
	Length            *string `xml:"length"`
	DistanceThreshold *string `xml:"distance_threshold"`
	DistanceCentre    *string `xml:"distance_centerline"`
}

// Decode reads one airport document. Every attribute and element of the
// layout must be present and every distance must be a number.
func Decode(r io.Reader) (model.AirportRecord, error) {
	var doc airportElem
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return model.AirportRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Name == nil {
		return model.AirportRecord{}, fmt.Errorf("%w: airport has no name attribute", ErrMalformed)
	}

	rec := model.AirportRecord{Name: *doc.Name}
	for i, re := range doc.Runways {
		if re.Designator == nil {
			return model.AirportRecord{}, fmt.Errorf("%w: runway %d has no runway_designator attribute", ErrMalformed, i+1)
		}
		where := "runway " + *re.Designator
		rr := model.RunwayRecord{Number: *re.Designator}

		var err error
		for _, f := range []struct {
			name string
			raw  *string
			dst  *float64
		}{
			{"TORA", re.TORA, &rr.TORA},
			{"TODA", re.TODA, &rr.TODA},
			{"ASDA", re.ASDA, &rr.ASDA},
			{"LDA", re.LDA, &rr.LDA},
			{"displaced_threshold", re.Displaced, &rr.DisplacedThreshold},
		} {
			if *f.dst, err = number(where, f.name, f.raw); err != nil {
				return model.AirportRecord{}, err
			}
		}

		for j, oe := range re.Obstacles {
			if oe.Name == nil {
				return model.AirportRecord{}, fmt.Errorf("%w: %s: obstacle %d has no name attribute", ErrMalformed, where, j+1)
			}
			owhere := where + " obstacle " + *oe.Name
			or := model.ObstacleRecord{Name: *oe.Name}
			for _, f := range []struct {
				name string
				raw  *string
				dst  *float64
			}{
				{"height", oe.Height, &or.Height},
				{"length", oe.Length, &or.Length},
				{"distance_threshold", oe.DistanceThreshold, &or.DistanceThreshold},
				{"distance_centerline", oe.DistanceCentre, &or.DistanceCentre},
			} {
				if *f.dst, err = number(owhere, f.name, f.raw); err != nil {
					return model.AirportRecord{}, err
				}
			}
			rr.Obstacles = append(rr.Obstacles, or)
		}
		rec.Runways = append(rec.Runways, rr)
	}
	return rec, nil
}

func number(where, element string, raw *string) (float64, error) {
	if raw == nil {
		return 0, fmt.Errorf("%w: %s: missing %s", ErrMalformed, where, element)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s: %s %q is not a number", ErrMalformed, where, element, *raw)
	}
	return v, nil
}

// Encode writes one airport document, indented by two spaces
func Encode(w io.Writer, rec model.AirportRecord) error {
	doc := airportElem{Name: ptr(rec.Name)}
	for _, rr := range rec.Runways {
		re := runwayElem{
			Designator: ptr(rr.Number),
			TORA:       ptr(formatNumber(rr.TORA)),
			TODA:       ptr(formatNumber(rr.TODA)),
			ASDA:       ptr(formatNumber(rr.ASDA)),
			LDA:        ptr(formatNumber(rr.LDA)),
			Displaced:  ptr(formatNumber(rr.DisplacedThreshold)),
		}
		for _, or := range rr.Obstacles {
			re.Obstacles = append(re.Obstacles, obstacleElem{
				Name:              ptr(or.Name),
				Height:            ptr(formatNumber(or.Height)),
				Length:            ptr(formatNumber(or.Length)),
				DistanceThreshold: ptr(formatNumber(or.DistanceThreshold)),
				DistanceCentre:    ptr(formatNumber(or.DistanceCentre)),
			})
		}
		doc.Runways = append(doc.Runways, re)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode airport %s: %w", rec.Name, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write airport %s: %w", rec.Name, err)
	}
	return nil
}

// formatNumber always keeps one decimal place for whole numbers ("3902.0")
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func ptr(s string) *string { return &s }
