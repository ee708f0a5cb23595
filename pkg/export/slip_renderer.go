package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SlipData carries everything printed on a hostel leave out-pass.
type SlipData struct {
	RequestID    string
	SystemID     string
	StudentName  string
	RollNo       string
	Department   string
	Year         string
	HostelName   string
	RoomNo       string
	ParentMobile string
	PlaceOfVisit string
	Reason       string
	FromDate     string
	ToDate       string
	ApprovedBy   string
	ApprovedOn   string
}

// SlipRenderer produces the printable gate-pass PDF for an approved request.
type SlipRenderer struct {
	Organisation string
	Subtitle     string
}

// NewSlipRenderer builds a slip renderer with the given letterhead.
func NewSlipRenderer(organisation, subtitle string) *SlipRenderer {
	if organisation == "" {
		organisation = "Student Hostel"
	}
	return &SlipRenderer{Organisation: organisation, Subtitle: subtitle}
}

// Render lays out the out-pass on a single A5 landscape page.
func (r *SlipRenderer) Render(data SlipData) ([]byte, error) {
	if data.StudentName == "" || data.RollNo == "" {
		return nil, fmt.Errorf("slip requires student name and roll number")
	}

	pdf := gofpdf.New("L", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 8, r.Organisation, "", 1, "C", false, 0, "")
	if r.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, r.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "HOSTEL LEAVE / OUT PASS", "T", 1, "C", false, 0, "")
	pdf.Ln(3)

	row := func(leftLabel, leftValue, rightLabel, rightValue string) {
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(32, 5, leftLabel, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(66, 5, leftValue, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(28, 5, rightLabel, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, rightValue, "", 1, "L", false, 0, "")
		pdf.Ln(1)
	}

	row("STUDENT NAME", data.StudentName, "ROLL NO", data.RollNo)
	row("COURSE / YEAR", fmt.Sprintf("%s (%s)", data.Department, data.Year), "HOSTEL / ROOM", fmt.Sprintf("%s - %s", data.HostelName, data.RoomNo))
	row("LEAVE FROM", data.FromDate, "LEAVE TO", data.ToDate)
	row("PLACE OF VISIT", data.PlaceOfVisit, "PARENT MOBILE", data.ParentMobile)

	pdf.Ln(1)
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(32, 5, "REASON", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, data.Reason, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(95, 5, fmt.Sprintf("Approved by: %s", data.ApprovedBy), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Date: %s", data.ApprovedOn), "", 1, "R", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(0, 4, fmt.Sprintf("Pass Ref: %s / %s", data.SystemID, data.RequestID), "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render slip pdf: %w", err)
	}
	return buf.Bytes(), nil
}
