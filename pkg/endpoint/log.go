package endpoint

import "github.com/sirupsen/logrus"

var log = logrus.WithField("component", "endpoint")
