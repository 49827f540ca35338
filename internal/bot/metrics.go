package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	// commandsTotal считает обработанные сообщения по виду команды.
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodbot_commands_total",
			Help: "Total number of classified inbound messages by command.",
		},
		[]string{"command"},
	)

	// repliesTotal считает отправленные ответы. result: "ok" или "error".
	repliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodbot_replies_total",
			Help: "Total number of replies sent to chat channels.",
		},
		[]string{"result"},
	)

	// fanoutFailures считает цепочки участников, завершившиеся ошибкой.
	fanoutFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodbot_fanout_failures_total",
			Help: "Total number of failed per-member chains of channel-wide commands.",
		},
		[]string{"command"},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodbot_messages_inflight",
			Help: "Current number of inbound messages being handled.",
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, repliesTotal, fanoutFailures, inflight)
}
