package outbox

import (
	"context"
	"fmt"

	"agentcrm/models"
)

// Notifications собирает письма о доменных событиях и кладет их
// в очередь. Реализует порт уведомлений банковского ядра.
type Notifications struct {
	svc         *Service
	frontendURL string
	adminEmails []string
}

func NewNotifications(svc *Service, frontendURL string, adminEmails []string) *Notifications {
	return &Notifications{svc: svc, frontendURL: frontendURL, adminEmails: adminEmails}
}

// ApplicationSent уведомляет администраторов об отправке заявки в банк.
func (n *Notifications) ApplicationSent(ctx context.Context, app *models.Application, company *models.Company) error {
	if len(n.adminEmails) == 0 {
		return nil
	}
	companyName := ""
	if company != nil {
		companyName = company.ShortName
		if companyName == "" {
			companyName = company.Name
		}
	}
	body := fmt.Sprintf(
		"Заявка №%d (%s) отправлена в банк.\nНомер тикета: %s\nСтатус банка: %s\n\nКарточка заявки: %s/applications/%d\n",
		app.ID, companyName, app.ExternalID, app.BankStatus, n.frontendURL, app.ID)

	_, err := n.svc.Enqueue(ctx, Message{
		EventType:  "admin_application_sent",
		Subject:    fmt.Sprintf("Заявка №%d отправлена в банк", app.ID),
		Body:       body,
		Recipients: n.adminEmails,
		Metadata: models.JSONMap{
			"application_id": app.ID,
			"external_id":    app.ExternalID,
		},
	})
	return err
}

// StatusChanged уведомляет о переходе заявки в значимый статус.
func (n *Notifications) StatusChanged(ctx context.Context, app *models.Application, prevStatus string) error {
	if len(n.adminEmails) == 0 {
		return nil
	}
	body := fmt.Sprintf(
		"Статус заявки №%d изменился с '%s' на '%s'.\nСтатус банка: %s\n\nКарточка заявки: %s/applications/%d\n",
		app.ID, prevStatus, app.Status, app.BankStatus, n.frontendURL, app.ID)

	_, err := n.svc.Enqueue(ctx, Message{
		EventType:  "application_status_changed",
		Subject:    fmt.Sprintf("Заявка №%d: новый статус", app.ID),
		Body:       body,
		Recipients: n.adminEmails,
		Metadata: models.JSONMap{
			"application_id": app.ID,
			"external_id":    app.ExternalID,
			"prev_status":    prevStatus,
			"new_status":     app.Status,
		},
	})
	return err
}
