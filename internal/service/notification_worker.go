package service

import (
	"encoding/json"
	"log"

	"chatapp/internal/util"
	"chatapp/internal/websocket"
)

// NotificationWorker consumes notification messages from RabbitMQ and
// pushes them to connected WebSocket clients.
type NotificationWorker struct {
	rabbitMQ *util.RabbitMQClient
	wsHub    *websocket.Hub
	stopChan chan struct{}
}

func NewNotificationWorker(rabbitMQ *util.RabbitMQClient, wsHub *websocket.Hub) *NotificationWorker {
	return &NotificationWorker{
		rabbitMQ: rabbitMQ,
		wsHub:    wsHub,
		stopChan: make(chan struct{}),
	}
}

// Start begins consuming from the notification queue
func (w *NotificationWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil
	}

	if err := w.rabbitMQ.DeclareExchangeAndQueue(NotificationExchange, NotificationQueueName, NotificationRoutingKey); err != nil {
		return err
	}

	msgs, err := w.rabbitMQ.GetChannel().Consume(
		NotificationQueueName,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-w.stopChan:
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}

				var msg NotificationMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					log.Printf("Failed to decode notification message: %v", err)
					continue
				}

				w.wsHub.BroadcastToUser(msg.UserID, map[string]interface{}{
					"type":    "notification",
					"subtype": msg.Type,
					"title":   msg.Title,
					"message": msg.Message,
					"data":    msg.Data,
				})
			}
		}
	}()

	return nil
}

// Stop ends consumption
func (w *NotificationWorker) Stop() {
	close(w.stopChan)
}
