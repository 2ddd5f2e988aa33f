package cli

import (
	"fmt"

	"millionaire-quiz-service/internal/domain"
)

// sampleQuestions is the built-in bank used when neither Postgres nor a bank
// file is configured: one question per level of the default ladder.
// The first answer is the correct one.
func sampleQuestions() []domain.Question {
	entries := []struct {
		text    string
		answers [4]string
	}{
		{"How many legs does a spider have?", [4]string{"Eight", "Six", "Ten", "Four"}},
		{"Which colour do you get by mixing blue and yellow?", [4]string{"Green", "Purple", "Orange", "Brown"}},
		{"What is the capital of France?", [4]string{"Paris", "Lyon", "Marseille", "Nice"}},
		{"How many minutes are in two hours?", [4]string{"120", "100", "90", "140"}},
		{"Which planet is known as the Red Planet?", [4]string{"Mars", "Venus", "Jupiter", "Mercury"}},
		{"Who wrote \"War and Peace\"?", [4]string{"Leo Tolstoy", "Fyodor Dostoevsky", "Anton Chekhov", "Ivan Turgenev"}},
		{"What is the chemical symbol for gold?", [4]string{"Au", "Ag", "Gd", "Go"}},
		{"In which year did the first crewed Moon landing happen?", [4]string{"1969", "1965", "1972", "1959"}},
		{"Which ocean is the largest?", [4]string{"Pacific", "Atlantic", "Indian", "Arctic"}},
		{"How many bones are in the adult human body?", [4]string{"206", "196", "212", "230"}},
		{"Which element has atomic number 26?", [4]string{"Iron", "Cobalt", "Nickel", "Copper"}},
		{"Who painted \"The Garden of Earthly Delights\"?", [4]string{"Hieronymus Bosch", "Pieter Bruegel", "Jan van Eyck", "Albrecht Durer"}},
		{"What is the longest river in Europe?", [4]string{"Volga", "Danube", "Rhine", "Dnieper"}},
		{"Who first proved Bertrand's postulate?", [4]string{"Pafnuty Chebyshev", "Carl Gauss", "Bernhard Riemann", "Leonhard Euler"}},
		{"Where was Spyridon Louis, winner of the 1896 Olympic marathon, born?", [4]string{"Marousi", "Athens", "Sparta", "Corinth"}},
	}

	questions := make([]domain.Question, 0, len(entries))
	for level, e := range entries {
		questions = append(questions, domain.Question{
			ID:      fmt.Sprintf("sample-%02d", level+1),
			Level:   level,
			Text:    e.text,
			Answers: e.answers,
		})
	}
	return questions
}
