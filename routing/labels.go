package routing

import (
	"fmt"

	"github.com/shelfann/shelfann/distance"
)

// DefaultLabels is the built-in topic label set used when the caller
// supplies none of its own.
var DefaultLabels = []string{
	"General Surgery",
	"Trauma and Emergency",
	"Gastrointestinal Surgery",
	"Hepatobiliary and Pancreas",
	"Colorectal Surgery",
	"Breast Surgery",
	"Endocrine Surgery",
	"Vascular Surgery",
	"Cardiothoracic Surgery",
	"Neurosurgery",
	"Orthopedics",
	"Urology",
	"ENT",
	"Ophthalmology",
	"Obstetrics and Gynecology",
	"Pediatrics",
	"Internal Medicine",
	"Cardiology",
	"Respiratory Medicine",
	"Nephrology",
	"Gastroenterology",
	"Neurology",
	"Infectious Disease",
	"Dermatology",
	"Radiology",
	"Pathology",
	"Pharmacology",
	"Physiology",
	"Anatomy",
	"Exam and Viva Preparation",
}

// SectionPrompt builds the text embedded for one section when labeling.
func SectionPrompt(book *BookAggregate, sec *SectionAggregate) string {
	return fmt.Sprintf("Book: %s\nSection: %s\nContent: %s", book.BookName, sec.Title, sec.SummaryPreview)
}

// AssignLabels tags each section with its most similar label by cosine
// similarity, mutating the sections in place. sectionVectors are the
// embedded section prompts, aligned with Sections(books); labelVectors
// are the embedded labels, aligned with labels. All vectors must be
// L2-normalized. Exact ties resolve to the lowest label index.
//
// The stage is optional: callers that supply no label vectors simply
// never call this, and sections carry no label.
func AssignLabels(books []*BookAggregate, sectionVectors [][]float32, labelVectors [][]float32, labels []string) error {
	if len(labelVectors) != len(labels) {
		return fmt.Errorf("label embedding count mismatch: %d vectors, %d labels", len(labelVectors), len(labels))
	}
	if len(labels) == 0 {
		return fmt.Errorf("no labels supplied")
	}

	sections := Sections(books)
	if len(sectionVectors) != len(sections) {
		return fmt.Errorf("section embedding count mismatch: %d vectors, %d sections", len(sectionVectors), len(sections))
	}

	for i, sec := range sections {
		bestIdx := 0
		bestScore := distance.Dot(sectionVectors[i], labelVectors[0])
		for j := 1; j < len(labelVectors); j++ {
			if score := distance.Dot(sectionVectors[i], labelVectors[j]); score > bestScore {
				bestIdx = j
				bestScore = score
			}
		}
		sec.SemanticLabel = labels[bestIdx]
		sec.SemanticScore = bestScore
	}

	return nil
}
