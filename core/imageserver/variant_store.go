package imageserver

import (
	"context"
	"encoding/json"
	"fmt"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"
	"github.com/pyropy/imgserve/core/model"
)

// VariantStore is a leveldb index of every resized variant that was derived,
// keyed by the variant's cache key.
type VariantStore struct {
	Variants *dslvl.Datastore
}

func NewVariantStore(dsPath string) (*VariantStore, error) {
	p := fmt.Sprintf("%s/variants", dsPath)
	store, err := dslvl.NewDatastore(p, nil)
	if err != nil {
		return nil, err
	}

	return &VariantStore{
		Variants: store,
	}, nil
}

func (v *VariantStore) Add(ctx context.Context, variant model.Variant) error {
	b, err := json.Marshal(variant)
	if err != nil {
		return err
	}

	k := ds.NewKey(variant.Key)
	return v.Variants.Put(ctx, k, b)
}

func (v *VariantStore) Get(ctx context.Context, key string) (*model.Variant, error) {
	k := ds.NewKey(key)
	b, err := v.Variants.Get(ctx, k)
	if err != nil {
		return nil, err
	}

	var variant model.Variant
	err = json.Unmarshal(b, &variant)
	if err != nil {
		return nil, err
	}

	return &variant, nil
}

func (v *VariantStore) Has(ctx context.Context, key string) (bool, error) {
	return v.Variants.Has(ctx, ds.NewKey(key))
}

func (v *VariantStore) Delete(ctx context.Context, key string) error {
	return v.Variants.Delete(ctx, ds.NewKey(key))
}

func (v *VariantStore) All(ctx context.Context) ([]*model.Variant, error) {
	q := dsq.Query{}
	variants := make([]*model.Variant, 0)

	res, err := v.Variants.Query(ctx, q)
	if err != nil {
		return variants, err
	}
	defer res.Close()

	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}

		if r.Error != nil {
			return variants, r.Error
		}

		var variant model.Variant
		err = json.Unmarshal(r.Value, &variant)
		if err != nil {
			return variants, err
		}
		variants = append(variants, &variant)
	}

	return variants, nil
}

func (v *VariantStore) Close() error {
	return v.Variants.Close()
}
