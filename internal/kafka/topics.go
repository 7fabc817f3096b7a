package kafka

import (
	"log"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicMergeCompleted = "merge-completed"
	TopicDuplicateScans = "duplicate-scans"
)

// EnsureTopicsExist creates the admin topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			// An already-existing topic is fine; keep going for the rest.
			log.Printf("kafka: create topic %s: %v", topic, err)
		}
	}

	// Give the cluster a moment to register the new topics.
	time.Sleep(1 * time.Second)
	return nil
}
