//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("places-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeSources writes the fixture documents to a temp dir and returns their paths.
func writeSources(t *testing.T) (markets, fairs, culture string) {
	t.Helper()
	dir := t.TempDir()
	markets = filepath.Join(dir, "mercados.csv")
	fairs = filepath.Join(dir, "ferias.csv")
	culture = filepath.Join(dir, "espacios_culturales.json")
	require.NoError(t, os.WriteFile(markets, []byte(marketsCSV), 0o600))
	require.NoError(t, os.WriteFile(fairs, []byte(fairsCSV), 0o600))
	require.NoError(t, os.WriteFile(culture, []byte(culturalJSON), 0o600))
	return markets, fairs, culture
}

const (
	marketsCSV = "NOMBRE;NOMBRE_MAP;UBICACION;BARRIO;LON;LAT\n" +
		"Mercado de Belgrano;;Juramento 2527;Belgrano;-58,4569;-34,5614\n" +
		"Mercado de San Telmo;;Defensa 961;San Telmo;-58,3717;-34,6209\n"

	fairsCSV = "LAT;LNG;ID;OBJETO;TIPO;NOMBRE;DIAS;OBSERVACIO;DIRECCION;CALLE;CRUCE;DIREC_NORM;DIREC_ARCG;BARRIO;COMUNA\n" +
		"-34,6211;-58,3736;101;FERIA;FERIA ARTESANAL;Feria de San Telmo;DOMINGOS;de 10:00 a 17:00;Plaza Dorrego;;;;;San Telmo;Comuna 1\n" +
		"-34,5880;-58,3930;102;FERIA;FERIA ARTESANAL;Feria de Recoleta;SABADOS, DOMINGOS Y FERIADOS;de 10:00 a 19:00;Plaza Francia;;;;;Recoleta;Comuna 2\n"

	culturalJSON = `[
	  {"id":"c-1","nombre":"Usina del Arte","direccion":"Agustín R. Caffarena 1","lat":-34.6283,"lng":-58.3572,
	   "tipo":"Centro Cultural","barrio":"La Boca","comuna":"Comuna 4"}
	]`
)
