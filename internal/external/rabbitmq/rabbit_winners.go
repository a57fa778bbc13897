package club

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"

	model "github.com/glkeru/vipclub/internal/models"
)

// Публикация итогов цикла для внешнего композера уведомлений
type RabbitAnnouncer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

const queueWinners = "winners"

func NewRabbitAnnouncer() (rabbit *RabbitAnnouncer, err error) {
	// config
	rabbiturl := os.Getenv("RABBIT_URL")
	if rabbiturl == "" {
		return nil, fmt.Errorf("env RABBIT_URL is not set")
	}
	rabbitport := os.Getenv("RABBIT_PORT")
	if rabbitport == "" {
		return nil, fmt.Errorf("env RABBIT_PORT is not set")
	}
	rabbituser := os.Getenv("RABBIT_USER")
	if rabbituser == "" {
		return nil, fmt.Errorf("env RABBIT_USER is not set")
	}
	rabbitpass := os.Getenv("RABBIT_PASSWORD")
	if rabbitpass == "" {
		return nil, fmt.Errorf("env RABBIT_PASSWORD is not set")
	}

	rabbitconn := "amqp://" + rabbituser + ":" + rabbitpass + "@" + rabbiturl + ":" + rabbitport + "/club"
	conn, err := amqp.Dial(rabbitconn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queueWinners, // name
		false,        // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitAnnouncer{conn, ch}, nil
}

func (r *RabbitAnnouncer) Close() {
	r.ch.Close()
	r.conn.Close()
}

type WinnerAnnouncement struct {
	User        string `json:"user"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Position    int    `json:"position"`
	Points      int64  `json:"points"`
	PrizeAmount string `json:"prizeAmount"`
}

// отправка победителей цикла
func (r *RabbitAnnouncer) Announce(ctx context.Context, winners []model.MonthlyWinner) error {
	for _, winner := range winners {
		st := &WinnerAnnouncement{
			User:        winner.User,
			Month:       winner.Month,
			Year:        winner.Year,
			Position:    winner.Position,
			Points:      winner.Points,
			PrizeAmount: winner.PrizeAmount.String(),
		}
		msg, err := json.Marshal(st)
		if err != nil {
			return err
		}

		err = r.ch.PublishWithContext(ctx,
			"",           // exchange
			queueWinners, // routing key
			false,        // mandatory
			false,        // immediate
			amqp.Publishing{
				ContentType: "application/json",
				Body:        []byte(msg),
			})
		if err != nil {
			return err
		}
	}
	return nil
}
