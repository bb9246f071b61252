package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	patientTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediroute",
		Name:      "patient_transitions_total",
		Help:      "Patient status transitions by target status.",
	}, []string{"status"})

	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediroute",
		Name:      "notifications_total",
		Help:      "Driver notifications stored, by notification status.",
	}, []string{"status"})

	driverLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediroute",
		Name:      "driver_logins_total",
		Help:      "Driver login attempts by result.",
	}, []string{"result"})

	deliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediroute",
		Name:      "notification_delivery_failures_total",
		Help:      "Best-effort notification pushes that failed, by channel.",
	}, []string{"channel"})
)
