package store

import (
	"strconv"

	"github.com/ipfs/go-datastore"

	"github.com/celestiaorg/celestia-light/header"
)

var (
	storePrefix = datastore.NewKey("header_store")

	headKey     = datastore.NewKey("head")
	indexPrefix = datastore.NewKey("index")
)

func heightKey(h uint64) datastore.Key {
	return indexPrefix.ChildString(strconv.FormatUint(h, 10))
}

func headerKey(h *header.ExtendedHeader) datastore.Key {
	return hashKey(h.Hash())
}

func hashKey(hash header.Hash) datastore.Key {
	return datastore.NewKey(hash.String())
}
