package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	SchedulerService *SchedulerService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	schedulerService := InitSchedulerService(channel)
	if schedulerService == nil {
		panic("Failed to initialize Scheduler produce service")
	}

	produceInstance = &Produce{
		SchedulerService: schedulerService,
	}

	return produceInstance
}

func GetProduce() *Produce {
	if produceInstance == nil {
		panic("Produce not initialized. Call InitProduce() first.")
	}
	return produceInstance
}
