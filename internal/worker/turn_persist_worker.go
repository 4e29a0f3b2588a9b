package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

// TurnPersistWorker drains the turn queue and writes assistant turns to the
// session log. Delivery is at-least-once; AppendTurn is an insert, so a
// redelivered turn can duplicate a row, which the conversation log tolerates.
type TurnPersistWorker struct {
	conn      *amqp.Connection
	sessions  *repository.SessionRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnPersistWorker(conn *amqp.Connection, sessions *repository.SessionRepository, queueName string) *TurnPersistWorker {
	return &TurnPersistWorker{
		conn:      conn,
		sessions:  sessions,
		queueName: queueName,
	}
}

func (w *TurnPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var turn model.ChatTurn
				if err := json.Unmarshal(d.Body, &turn); err != nil {
					log.Printf("worker decode turn failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.sessions.AppendTurn(workerCtx, &turn); err != nil {
					log.Printf("worker persist turn for session %d failed: %v", turn.SessionID, err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *TurnPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
