package taskfile

import (
	"encoding/gob"
	"os"
)

func init() {
	gob.Register(List{})
	gob.Register(Target{})
	gob.Register(ShellCommand{})
	gob.Register(RefCommand{})
}

// WriteCache stores the parsed target list so later invocations with the same
// options don't have to evaluate the script again.
func WriteCache(file string, options map[string]string, list List) error {
	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(options)
	if err != nil {
		return err
	}

	return encoder.Encode(list)
}

// ReadCache loads a target list written by WriteCache.
func ReadCache(file string) (map[string]string, List, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var options map[string]string
	err = decoder.Decode(&options)
	if err != nil {
		return nil, nil, err
	}

	var result List
	err = decoder.Decode(&result)
	if err != nil {
		return options, nil, err
	}

	return options, result, nil
}
