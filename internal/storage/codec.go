package storage

import (
	"encoding/json"
	"errors"

	"molgen/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRunSummary(s model.RunSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return summary, nil
}

func EncodeTopMolecules(records []model.TopMoleculeRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeTopMolecules(data []byte) ([]model.TopMoleculeRecord, error) {
	var records []model.TopMoleculeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func EncodeMolecules(records []model.MoleculeRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeMolecules(data []byte) ([]model.MoleculeRecord, error) {
	var records []model.MoleculeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
