package proxy

import "rtps-go/pkg/guid"

func zeroGUID() guid.GUID {
	return guid.GUID{}
}
