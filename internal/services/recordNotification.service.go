package services

import (
	"eyeshield/internal/events"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
)

// RecordNotificationService announces durable record changes to whoever
// subscribed on the event bus (dashboard websockets, records browser).
type RecordNotificationService struct {
	eventBus *events.EventBus
	log      logger.Logger
}

func NewRecordNotificationService(eventBus *events.EventBus) *RecordNotificationService {
	return &RecordNotificationService{
		eventBus: eventBus,
		log:      logger.New("RecordNotificationService"),
	}
}

func (s *RecordNotificationService) RecordAdded(record ScreeningRecord, total int) error {
	event := events.Event{
		Type: events.TypeRecordAdded,
		Data: map[string]any{
			"patientId": record.PatientID,
			"name":      record.Name,
			"result":    record.Result,
			"finding":   string(record.Finding),
			"total":     total,
		},
	}

	if err := s.eventBus.Publish(events.ChannelRecords, event); err != nil {
		return s.log.Function("RecordAdded").
			Err("failed to publish record added event", err, "patientID", record.PatientID)
	}

	return nil
}
