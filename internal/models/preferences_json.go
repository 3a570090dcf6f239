package models

import "encoding/json"

// UnmarshalJSON accepts both the canonical keys and the Spanish keys older
// signup forms still post (manana, tarde, semanal, deportes). Canonical keys
// win when both are present.
func (pp *PreferencesPatch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Morning  *bool `json:"morning"`
		Evening  *bool `json:"evening"`
		Weekly   *bool `json:"weekly"`
		Sports   *bool `json:"sports"`
		Manana   *bool `json:"manana"`
		Tarde    *bool `json:"tarde"`
		Semanal  *bool `json:"semanal"`
		Deportes *bool `json:"deportes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*pp = PreferencesPatch{
		Morning: firstSet(raw.Morning, raw.Manana),
		Evening: firstSet(raw.Evening, raw.Tarde),
		Weekly:  firstSet(raw.Weekly, raw.Semanal),
		Sports:  firstSet(raw.Sports, raw.Deportes),
	}
	return nil
}

// UnmarshalJSON decodes through PreferencesPatch so stored documents and
// requests using either key set round-trip into the same flags.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	var patch PreferencesPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return err
	}
	*p = Preferences{}
	patch.Apply(p)
	return nil
}

func firstSet(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
