package ipfix

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateStores(t *testing.T) {
	tests := []struct {
		name  string
		store interface {
			TemplateStore
			Len() int
			TemplateIDs() []uint16
		}
	}{
		{
			name:  "exclusive",
			store: NewExclusiveTemplateStore(),
		},
		{
			name:  "shared",
			store: NewSharedTemplateStore(),
		},
	}

	for _, test := range tests {
		_, ok := test.store.GetTemplate(256)
		assert.False(t, ok, test.name)

		InsertTemplateRecords(test.store, []TemplateRecord{
			{TemplateID: 300, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(8, 4)}},
			{TemplateID: 256, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(2, 8)}},
		}, resolver)
		assert.Equal(t, []uint16{256, 300}, test.store.TemplateIDs(), test.name)

		// re-announcement replaces the template
		InsertTemplateRecords(test.store, []TemplateRecord{
			{TemplateID: 256, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(8, 4), NewFieldSpecifier(2, 8)}},
		}, resolver)
		tmpl, ok := test.store.GetTemplate(256)
		require.True(t, ok, test.name)
		assert.Len(t, tmpl.Fields, 2, test.name)
		assert.Equal(t, 12, tmpl.MinRecordLength(), test.name)
		assert.Empty(t, tmpl.ScopeFields(), test.name)

		InsertOptionsTemplateRecords(test.store, []OptionsTemplateRecord{
			{TemplateID: 400, ScopeFieldCount: 5, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(144, 4), NewFieldSpecifier(82, VariableLength)}},
		}, resolver)
		tmpl, ok = test.store.GetTemplate(400)
		require.True(t, ok, test.name)
		assert.Equal(t, KindOptionsTemplate, tmpl.Kind, test.name)
		assert.Len(t, tmpl.ScopeFields(), 2, test.name)
		assert.Equal(t, 5, tmpl.MinRecordLength(), test.name)

		InsertTemplateRecords(test.store, []TemplateRecord{{TemplateID: 300}}, resolver)
		InsertOptionsTemplateRecords(test.store, []OptionsTemplateRecord{{TemplateID: 400}}, resolver)
		assert.Equal(t, 1, test.store.Len(), test.name)
		assert.Equal(t, []uint16{256}, test.store.TemplateIDs(), test.name)
	}
}

func TestSharedTemplateStoreConcurrency(t *testing.T) {
	store := NewSharedTemplateStore()
	raw := message(templateSet, dataSet)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := Decode(raw, store, resolver)
			errs <- err
		}()

		go func(id uint16) {
			defer wg.Done()
			InsertTemplateRecords(store, []TemplateRecord{
				{TemplateID: id, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(8, 4)}},
			}, resolver)
			store.GetTemplate(id)
		}(uint16(1000 + i))
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, 17, store.Len())
}
