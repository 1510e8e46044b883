package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/signintech/gopdf"

	"medical-intake-agent/internal/intake"
)

// TelegramClient is the transport used to page staff.
type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service pages staff when an intake conversation is classified as an
// emergency: a short text alert first, then a PDF handoff report with the
// triage assessment and whatever the pipeline has extracted so far.
// It implements intake.Notifier.
type Service struct {
	tgClient    TelegramClient
	staffChatID int64
}

func NewService(tg TelegramClient, staffChatID int64) *Service {
	return &Service{
		tgClient:    tg,
		staffChatID: staffChatID,
	}
}

func (s *Service) NotifyEmergency(ctx context.Context, state *intake.ConversationState) error {
	alert := fmt.Sprintf(
		"🚨 EMERGENCY triage — thread %s\nDecision: %s (confidence %.2f)\n%s",
		state.ThreadID,
		state.TriageResult.Decision,
		state.TriageResult.Confidence,
		state.TriageResult.Reasoning,
	)
	if err := s.tgClient.SendMessage(s.staffChatID, alert); err != nil {
		return fmt.Errorf("send staff alert: %w", err)
	}

	pdfData, err := s.buildHandoffPDF(state)
	if err != nil {
		// The alert already went out; the report is best effort.
		log.Error().Err(err).Str("thread_id", state.ThreadID).Msg("handoff report generation failed")
		return nil
	}

	fileName := fmt.Sprintf("handoff_%s.pdf", state.ThreadID)
	if err := s.tgClient.SendDocument(s.staffChatID, pdfData, fileName); err != nil {
		return fmt.Errorf("send handoff report: %w", err)
	}
	return nil
}

func (s *Service) buildHandoffPDF(state *intake.ConversationState) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// Try common DejaVu locations; the container image ships ttf-dejavu.
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, is ttf-dejavu installed? last error: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Emergency Intake Handoff")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Thread: %s", state.ThreadID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Triage decision: %s (confidence %.2f)", state.TriageResult.Decision, state.TriageResult.Confidence))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Triage reasoning:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	writeWrapped(&pdf, state.TriageResult.Reasoning)
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "OPQRST coverage:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, d := range intake.DimensionOrder {
		mark := "pending"
		if state.StageStatus.Done(d) {
			mark = "covered"
		}
		pdf.Cell(nil, fmt.Sprintf("- %s: %s", d, mark))
		pdf.Br(12)
	}
	pdf.Br(10)

	if state.MedicalData != nil {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Extracted data:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		writeWrapped(&pdf, state.MedicalData.RawText)
		pdf.Br(10)
	}

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Patient's own words (last turns):")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, t := range lastUserTurns(state.Messages, 5) {
		writeWrapped(&pdf, "- "+t.Content)
		pdf.Br(3)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeWrapped(pdf *gopdf.GoPdf, text string) {
	for _, para := range strings.Split(text, "\n") {
		lines, _ := pdf.SplitText(para, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}
}

func lastUserTurns(turns []intake.Turn, n int) []intake.Turn {
	var users []intake.Turn
	for _, t := range turns {
		if t.Role == intake.RoleUser {
			users = append(users, t)
		}
	}
	if len(users) > n {
		users = users[len(users)-n:]
	}
	return users
}
